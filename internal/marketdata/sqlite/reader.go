package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/series"
)

// ladder lists intervals from finest to coarsest. A request for an interval
// with no stored bars is resampled from the coarsest finer interval that
// divides it.
var ladder = []model.Interval{
	model.Interval1M, model.Interval5M, model.Interval15M, model.Interval30M,
	model.Interval1H, model.Interval1D, model.Interval1WK,
}

// Provider serves bar history and quotes from SQLite. It satisfies
// model.HistoricalProvider and model.QuoteProvider.
type Provider struct {
	db *sql.DB
}

// NewProvider opens a SQLite connection for reading.
func NewProvider(dbPath string) (*Provider, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite provider opened", "path", dbPath)
	return &Provider{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (p *Provider) DB() *sql.DB { return p.db }

// GetHistoricalBars returns the bars covering key.Period, counted back from
// the latest stored bar, ordered by time. An unknown symbol fails with
// model.ErrNotFound; a known symbol without bars for the interval returns
// an empty series.
func (p *Provider) GetHistoricalBars(ctx context.Context, key model.SeriesKey) ([]model.Bar, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	known, err := p.hasSymbol(ctx, key.Symbol)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("symbol %s: %w", key.Symbol, model.ErrNotFound)
	}

	bars, err := p.readBars(ctx, key.Symbol, key.Interval, key.Period.Span())
	if err != nil || len(bars) > 0 {
		return bars, err
	}

	want := key.Interval.Duration()
	for i := len(ladder) - 1; i >= 0; i-- {
		src := ladder[i]
		d := src.Duration()
		if d >= want || want%d != 0 {
			continue
		}
		bars, err := p.readBars(ctx, key.Symbol, src, key.Period.Span())
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			slog.Debug("resampling history", "key", key.String(), "source", string(src), "bars", len(bars))
			return series.Resample(bars, want), nil
		}
	}
	return nil, nil
}

func (p *Provider) hasSymbol(ctx context.Context, symbol string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM bars WHERE symbol = ? LIMIT 1`, symbol).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("sqlite lookup "+symbol, err)
	}
	return true, nil
}

// readBars reads bars newer than (latest - span) ordered by timestamp.
func (p *Provider) readBars(ctx context.Context, symbol string, interval model.Interval, span time.Duration) ([]model.Bar, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ?
		  AND ts > (SELECT MAX(ts) FROM bars WHERE symbol = ? AND interval = ?) - ?
		ORDER BY ts ASC
	`, symbol, string(interval), symbol, string(interval), int64(span/time.Second))
	if err != nil {
		return nil, storeErr("sqlite query bars", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.Timestamp = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("sqlite read bars", err)
	}
	return bars, nil
}

// GetQuote returns the stored header quote for symbol.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	q := model.Quote{Symbol: symbol}
	err := p.db.QueryRowContext(ctx,
		`SELECT current_price, change_percent FROM quotes WHERE symbol = ?`, symbol,
	).Scan(&q.CurrentPrice, &q.ChangePercent)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, model.ErrNotFound)
	}
	if err != nil {
		return model.Quote{}, storeErr("sqlite read quote", err)
	}
	return q, nil
}

// Close closes the provider.
func (p *Provider) Close() error {
	return p.db.Close()
}

// storeErr marks a failed query as model.ErrNetwork. A cancelled context is
// the caller abandoning the request and is passed through unmarked.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrNetwork, err)
}
