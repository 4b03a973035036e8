package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// History guards a model.HistoricalProvider. A rejected call fails with an
// error wrapping both model.ErrNetwork and ErrOpen, so the chart shows its
// network placeholder.
type History struct {
	Provider model.HistoricalProvider
	Breaker  *Breaker
}

// GetHistoricalBars implements model.HistoricalProvider.
func (h History) GetHistoricalBars(ctx context.Context, key model.SeriesKey) ([]model.Bar, error) {
	var bars []model.Bar
	err := h.Breaker.Do(func() error {
		var err error
		bars, err = h.Provider.GetHistoricalBars(ctx, key)
		return err
	})
	if errors.Is(err, ErrOpen) {
		return nil, fmt.Errorf("history %s: %w: %w", key, model.ErrNetwork, err)
	}
	return bars, err
}

// Quotes guards a model.QuoteProvider.
type Quotes struct {
	Provider model.QuoteProvider
	Breaker  *Breaker
}

// GetQuote implements model.QuoteProvider.
func (q Quotes) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	var quote model.Quote
	err := q.Breaker.Do(func() error {
		var err error
		quote, err = q.Provider.GetQuote(ctx, symbol)
		return err
	})
	if errors.Is(err, ErrOpen) {
		return model.Quote{}, fmt.Errorf("quote %s: %w: %w", symbol, model.ErrNetwork, err)
	}
	return quote, err
}
