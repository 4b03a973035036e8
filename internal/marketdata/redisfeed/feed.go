// Package redisfeed delivers live ticks over Redis Pub/Sub and serves quote
// snapshots from Redis hashes.
//
// Channel layout:
//
//	pub:tick:{SYMBOL}  JSON model.Tick messages
//	quote:{SYMBOL}     hash {price, change_pct, ts}
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

const defaultHealthInterval = 5 * time.Second

// Config configures the Redis connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// HealthInterval is how often a subscription pings Redis to detect a
	// lost connection.
	HealthInterval time.Duration
}

// TickChannel returns the Pub/Sub channel carrying ticks for symbol.
func TickChannel(symbol string) string {
	return "pub:tick:" + strings.ToUpper(symbol)
}

// QuoteKey returns the hash key holding the quote snapshot for symbol.
func QuoteKey(symbol string) string {
	return "quote:" + strings.ToUpper(symbol)
}

// Feed is a model.LiveProvider and model.QuoteProvider backed by Redis.
type Feed struct {
	client         *goredis.Client
	healthInterval time.Duration
}

// Client returns the underlying Redis client for health checks.
func (f *Feed) Client() *goredis.Client { return f.client }

// New creates a Feed and pings the server.
func New(cfg Config) (*Feed, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w: %w", model.ErrNetwork, err)
	}

	hi := cfg.HealthInterval
	if hi <= 0 {
		hi = defaultHealthInterval
	}
	slog.Info("redis feed connected", "addr", cfg.Addr)
	return &Feed{client: client, healthInterval: hi}, nil
}

// Subscribe starts delivering ticks for symbol. onStatus reports true once
// the subscription is confirmed and flips when health pings fail or recover.
// Callbacks may still fire briefly after unsubscribe returns.
func (f *Feed) Subscribe(ctx context.Context, symbol string, onTick model.TickHandler, onStatus model.StatusHandler) (func(), error) {
	channel := TickChannel(symbol)
	ps := f.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w: %w", channel, model.ErrDisconnected, err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		ch := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				t, err := model.DecodeTick([]byte(msg.Payload), symbol)
				if err != nil {
					slog.Warn("dropping malformed tick", "channel", msg.Channel, "error", err)
					continue
				}
				onTick(t)
			}
		}
	}()

	go f.watch(subCtx, onStatus)

	slog.Info("subscribed to live ticks", "channel", channel)
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			ps.Close()
			slog.Info("unsubscribed from live ticks", "channel", channel)
		})
	}, nil
}

// watch reports connectivity transitions until ctx is done.
func (f *Feed) watch(ctx context.Context, onStatus model.StatusHandler) {
	connected := true
	if onStatus != nil {
		onStatus(true)
	}
	ticker := time.NewTicker(f.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, f.healthInterval)
			err := f.client.Ping(pingCtx).Err()
			cancel()
			if ctx.Err() != nil {
				return
			}
			if up := err == nil; up != connected {
				connected = up
				if !up {
					slog.Warn("redis feed unreachable", "error", err)
				}
				if onStatus != nil {
					onStatus(up)
				}
			}
		}
	}
}

// GetQuote reads the quote snapshot hash for symbol.
func (f *Feed) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	fields, err := f.client.HGetAll(ctx, QuoteKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return model.Quote{}, fmt.Errorf("redis quote %s: %w", symbol, err)
		}
		return model.Quote{}, fmt.Errorf("redis quote %s: %w: %w", symbol, model.ErrNetwork, err)
	}
	return ParseQuote(strings.ToUpper(symbol), fields)
}

// Publish sends a tick on the symbol's channel.
func (f *Feed) Publish(ctx context.Context, t model.Tick) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	return f.client.Publish(ctx, TickChannel(t.Symbol), data).Err()
}

// SetQuote writes the quote snapshot hash.
func (f *Feed) SetQuote(ctx context.Context, q model.Quote) error {
	return f.client.HSet(ctx, QuoteKey(q.Symbol),
		"price", strconv.FormatFloat(q.CurrentPrice, 'f', -1, 64),
		"change_pct", strconv.FormatFloat(q.ChangePercent, 'f', -1, 64),
		"ts", time.Now().Unix(),
	).Err()
}

// Close closes the Redis client.
func (f *Feed) Close() error {
	return f.client.Close()
}

// ParseQuote builds a quote from the snapshot hash fields.
func ParseQuote(symbol string, fields map[string]string) (model.Quote, error) {
	if len(fields) == 0 {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, model.ErrNotFound)
	}
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote %s price: %w", symbol, err)
	}
	q := model.Quote{Symbol: symbol, CurrentPrice: price}
	if v, ok := fields["change_pct"]; ok {
		if q.ChangePercent, err = strconv.ParseFloat(v, 64); err != nil {
			return model.Quote{}, fmt.Errorf("quote %s change_pct: %w", symbol, err)
		}
	}
	return q, nil
}
