// Package wsfeed provides a live tick client for a plain-JSON WebSocket tick
// server (e.g. cmd/tickserver).
//
// The expected message format on the wire is model.Tick:
//
//	{"symbol":"AAPL","price":187.25,"volume":12,"ts":"2024-01-15T14:30:05Z"}
//
// The subscribed symbol is passed as ?symbol= so the server can filter;
// ticks for other symbols are dropped client-side as well.
package wsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// Config holds configuration for the WebSocket feed.
type Config struct {
	// URL of the tick WebSocket server, e.g. "ws://localhost:9001/ws"
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Feed is a model.LiveProvider over WebSocket.
type Feed struct {
	cfg Config
	url *url.URL

	// OnReconnect is called each time a reconnection happens. Optional.
	OnReconnect func()
}

// New creates a new Feed. Returns an error if the URL is unparseable.
func New(cfg Config) (*Feed, error) {
	cfg.defaults()
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("tick feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("tick feed url %q: scheme must be ws or wss", cfg.URL)
	}
	return &Feed{cfg: cfg, url: u}, nil
}

// URL returns the dial URL for symbol.
func (f *Feed) URL(symbol string) string {
	u := *f.url
	q := u.Query()
	q.Set("symbol", strings.ToUpper(symbol))
	u.RawQuery = q.Encode()
	return u.String()
}

// Subscribe connects in the background and streams ticks for symbol until
// the returned func is called or ctx is cancelled. Reconnects with
// exponential backoff; onStatus reports each connect and disconnect.
func (f *Feed) Subscribe(ctx context.Context, symbol string, onTick model.TickHandler, onStatus model.StatusHandler) (func(), error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("subscribe: %w", model.ErrInvalidKey)
	}
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.run(subCtx, symbol, onTick, onStatus)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// run blocks until ctx is cancelled. Reconnects automatically on disconnect.
func (f *Feed) run(ctx context.Context, symbol string, onTick model.TickHandler, onStatus model.StatusHandler) {
	delay := f.cfg.ReconnectDelay
	// Each state is reported once per change, so a feed that is down from
	// the start reports offline on the first failed dial.
	var reported, last bool
	status := func(up bool) {
		if reported && last == up {
			return
		}
		reported, last = true, up
		if onStatus != nil {
			onStatus(up)
		}
	}

	for {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return
		default:
		}

		connected, err := f.runOnce(ctx, symbol, onTick, status)
		if err == nil {
			// Context cancelled cleanly
			return
		}
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = f.cfg.ReconnectDelay
		}
		status(false)

		slog.Warn("tick feed disconnected, reconnecting", "symbol", symbol, "error", err, "delay", delay)
		if f.OnReconnect != nil {
			f.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > f.cfg.MaxReconnectDelay {
			delay = f.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancel. connected reports whether the dial succeeded.
func (f *Feed) runOnce(ctx context.Context, symbol string, onTick model.TickHandler, status func(bool)) (connected bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.URL(symbol), nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	slog.Info("tick feed connected", "url", f.cfg.URL, "symbol", symbol)
	status(true)

	// Close the connection when ctx is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Check if it's a context cancellation
			select {
			case <-ctx.Done():
				return true, nil
			default:
			}
			return true, err
		}

		tick, err := model.DecodeTick(raw, symbol)
		if err != nil {
			slog.Warn("tick feed parse error", "error", err, "raw", string(raw))
			continue
		}
		if tick.Symbol != symbol {
			continue
		}
		onTick(tick)
	}
}
