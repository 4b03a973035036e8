// Package sqlite stores OHLCV bars in SQLite and serves them as the
// historical data provider.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/metrics"
	"github.com/michalhajok/trackerF-sub001/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Record is one bar to persist for a symbol and interval.
type Record struct {
	Symbol   string
	Interval model.Interval
	Bar      model.Bar
}

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath  string // path to SQLite database file, e.g. "data/bars.db"
	Metrics *metrics.Metrics
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// NewWriter opens the database with WAL mode and creates the schema.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite writer opened", "path", cfg.DBPath)
	return &Writer{db: db, metrics: cfg.Metrics}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL    NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS quotes (
			symbol         TEXT PRIMARY KEY,
			current_price  REAL NOT NULL,
			change_percent REAL NOT NULL,
			updated_at     INTEGER NOT NULL
		);
	`)
	return err
}

// Run reads records from recCh and inserts them in batched transactions.
// Flushes every batchSize records OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or recCh is closed.
func (w *Writer) Run(ctx context.Context, recCh <-chan Record) {
	batch := make([]Record, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			slog.Error("sqlite batch insert failed", "bars", len(batch), "error", err)
		} else {
			w.metrics.ObserveCommit(time.Since(start))
			slog.Debug("sqlite committed bars", "bars", len(batch), "took", time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case rec, ok := <-recCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// InsertBars writes a full series for symbol/interval in one transaction.
// Existing bars with the same timestamp are replaced.
func (w *Writer) InsertBars(symbol string, interval model.Interval, bars []model.Bar) error {
	recs := make([]Record, len(bars))
	for i, b := range bars {
		recs[i] = Record{Symbol: symbol, Interval: interval, Bar: b}
	}
	return w.insertBatch(recs)
}

// insertBatch inserts a batch of bars in a single transaction.
func (w *Writer) insertBatch(recs []Record) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		b := r.Bar
		if !b.Valid() {
			tx.Rollback()
			return fmt.Errorf("%s %s at %s: %w", r.Symbol, r.Interval, b.Timestamp.Format(time.RFC3339), model.ErrInvalidBar)
		}
		_, err := stmt.Exec(r.Symbol, string(r.Interval), b.Timestamp.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveQuote upserts the header quote for a symbol.
func (w *Writer) SaveQuote(q model.Quote) error {
	_, err := w.db.Exec(`
		INSERT OR REPLACE INTO quotes (symbol, current_price, change_percent, updated_at)
		VALUES (?, ?, ?, ?)
	`, q.Symbol, q.CurrentPrice, q.ChangePercent, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite save quote: %w", err)
	}
	return nil
}

// LastTimestamp returns the last stored bar time for symbol/interval, or
// the zero time if none exist.
func (w *Writer) LastTimestamp(symbol string, interval model.Interval) (time.Time, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM bars WHERE symbol = ? AND interval = ?`,
		symbol, string(interval),
	).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
