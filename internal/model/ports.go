package model

import "context"

// ── Collaborator Ports ──
// These interfaces decouple the charting core from concrete data sources
// (SQLite, Redis, WebSocket feeds). Each adapter satisfies one of them.

// HistoricalProvider loads the bar history for a series key.
type HistoricalProvider interface {
	// GetHistoricalBars returns bars ordered by time. Failures wrap
	// ErrNotFound, ErrRateLimited or ErrNetwork.
	GetHistoricalBars(ctx context.Context, key SeriesKey) ([]Bar, error)
}

// TickHandler receives a real-time tick. Called from the provider's goroutine.
type TickHandler func(Tick)

// StatusHandler receives live feed connectivity changes.
type StatusHandler func(connected bool)

// LiveProvider streams real-time ticks for a symbol.
type LiveProvider interface {
	// Subscribe starts delivering ticks for symbol until the returned
	// unsubscribe func is called or ctx is cancelled.
	Subscribe(ctx context.Context, symbol string, onTick TickHandler, onStatus StatusHandler) (unsubscribe func(), err error)
}

// QuoteProvider returns the current quote snapshot for a symbol.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}
