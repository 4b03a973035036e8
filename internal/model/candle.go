package model

import (
	"fmt"
	"time"
)

// Bar is one time-bucketed OHLCV summary. Timestamp is the bucket start (UTC).
type Bar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Valid reports whether High/Low bound Open and Close.
func (b Bar) Valid() bool {
	if b.High < b.Low {
		return false
	}
	return b.High >= b.Open && b.High >= b.Close && b.Low <= b.Open && b.Low <= b.Close
}

// Up reports whether the bar closed at or above its open.
func (b Bar) Up() bool { return b.Close >= b.Open }

// ValidateSeries checks that bars are individually valid and strictly
// increasing in time.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if !b.Valid() {
			return fmt.Errorf("bar %d at %s: %w", i, b.Timestamp.Format(time.RFC3339), ErrInvalidBar)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bar %d at %s not after previous: %w", i, b.Timestamp.Format(time.RFC3339), ErrUnordered)
		}
	}
	return nil
}
