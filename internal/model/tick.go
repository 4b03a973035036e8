package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tick is a single real-time price update for a symbol as delivered by the
// live price provider. Volume is the traded quantity carried by this tick.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"ts"`
}

// Quote is a point-in-time price snapshot used for the chart header.
type Quote struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	ChangePercent float64 `json:"change_percent"`
}

// DecodeTick parses a tick message. A message without a symbol is
// attributed to fallback.
func DecodeTick(payload []byte, fallback string) (Tick, error) {
	var t Tick
	if err := json.Unmarshal(payload, &t); err != nil {
		return Tick{}, fmt.Errorf("decode tick: %w", err)
	}
	if t.Symbol == "" {
		t.Symbol = fallback
	}
	t.Symbol = strings.ToUpper(t.Symbol)
	if t.Price <= 0 {
		return Tick{}, errors.New("decode tick: non-positive price")
	}
	if t.Timestamp.IsZero() {
		return Tick{}, errors.New("decode tick: missing timestamp")
	}
	return t, nil
}
