package model

import (
	"fmt"
	"strings"
	"time"
)

// Period is the lookback window of a historical request.
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1MO Period = "1mo"
	Period3MO Period = "3mo"
	Period6MO Period = "6mo"
	Period1Y  Period = "1y"
	Period5Y  Period = "5y"
)

var periodSpans = map[Period]time.Duration{
	Period1D:  24 * time.Hour,
	Period5D:  5 * 24 * time.Hour,
	Period1MO: 30 * 24 * time.Hour,
	Period3MO: 91 * 24 * time.Hour,
	Period6MO: 182 * 24 * time.Hour,
	Period1Y:  365 * 24 * time.Hour,
	Period5Y:  5 * 365 * 24 * time.Hour,
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	_, ok := periodSpans[p]
	return ok
}

// Span returns the lookback duration covered by the period.
func (p Period) Span() time.Duration { return periodSpans[p] }

// Intraday reports whether timestamps should be labelled by time of day.
func (p Period) Intraday() bool { return p == Period1D }

// Interval is the bucket width of one bar.
type Interval string

const (
	Interval1M  Interval = "1m"
	Interval5M  Interval = "5m"
	Interval15M Interval = "15m"
	Interval30M Interval = "30m"
	Interval1H  Interval = "1h"
	Interval1D  Interval = "1d"
	Interval1WK Interval = "1wk"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1M:  time.Minute,
	Interval5M:  5 * time.Minute,
	Interval15M: 15 * time.Minute,
	Interval30M: 30 * time.Minute,
	Interval1H:  time.Hour,
	Interval1D:  24 * time.Hour,
	Interval1WK: 7 * 24 * time.Hour,
}

// Valid reports whether i is a known interval.
func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Duration returns the bucket width. Zero for unknown intervals.
func (i Interval) Duration() time.Duration { return intervalDurations[i] }

// SeriesKey identifies one historical request. Comparable, so it can be used
// directly as a map key or compared for the stale-response guard.
type SeriesKey struct {
	Symbol   string   `json:"symbol"`
	Period   Period   `json:"period"`
	Interval Interval `json:"interval"`
}

// String returns "SYMBOL:period:interval".
func (k SeriesKey) String() string {
	return k.Symbol + ":" + string(k.Period) + ":" + string(k.Interval)
}

// Validate checks that every component of the key is usable.
func (k SeriesKey) Validate() error {
	if strings.TrimSpace(k.Symbol) == "" {
		return fmt.Errorf("empty symbol: %w", ErrInvalidKey)
	}
	if !k.Period.Valid() {
		return fmt.Errorf("period %q: %w", k.Period, ErrInvalidKey)
	}
	if !k.Interval.Valid() {
		return fmt.Errorf("interval %q: %w", k.Interval, ErrInvalidKey)
	}
	return nil
}

// ParseSeriesKey parses "SYMBOL:period:interval".
func ParseSeriesKey(s string) (SeriesKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return SeriesKey{}, fmt.Errorf("parse %q: %w", s, ErrInvalidKey)
	}
	k := SeriesKey{
		Symbol:   strings.ToUpper(strings.TrimSpace(parts[0])),
		Period:   Period(strings.TrimSpace(parts[1])),
		Interval: Interval(strings.TrimSpace(parts[2])),
	}
	return k, k.Validate()
}

// AxisLabel formats a bar timestamp for the time axis: time of day for
// intraday periods, calendar date otherwise.
func (p Period) AxisLabel(ts time.Time) string {
	switch {
	case p.Intraday():
		return ts.UTC().Format("15:04")
	case p == Period1Y || p == Period5Y:
		return ts.UTC().Format("2006-01-02")
	default:
		return ts.UTC().Format("Jan 02")
	}
}

// TooltipLabel formats a bar timestamp for the crosshair tooltip.
func (p Period) TooltipLabel(ts time.Time) string {
	switch {
	case p.Intraday():
		return ts.UTC().Format("15:04")
	case p == Period5D:
		return ts.UTC().Format("Mon Jan 02 15:04")
	default:
		return ts.UTC().Format("2006-01-02")
	}
}
