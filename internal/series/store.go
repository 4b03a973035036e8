// Package series owns the ordered bar history of the active chart and merges
// real-time ticks into it.
//
// Ticks are bucketed by the series interval. A tick in the forming (last)
// bucket updates that bar in O(1); a tick in a later bucket opens exactly one
// new bar; a tick behind the forming bucket is rejected as stale.
package series

import (
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// MergeResult describes what a tick did to the series.
type MergeResult int

const (
	// Ignored means the tick did not touch the series (wrong symbol, no
	// history loaded, or non-positive price).
	Ignored MergeResult = iota
	// Stale means the tick belonged to a bucket older than the last bar.
	Stale
	// Updated means the last bar was updated in place.
	Updated
	// Appended means the tick opened a new bar.
	Appended
)

func (r MergeResult) String() string {
	switch r {
	case Stale:
		return "stale"
	case Updated:
		return "updated"
	case Appended:
		return "appended"
	default:
		return "ignored"
	}
}

// Changed reports whether the series was mutated.
func (r MergeResult) Changed() bool { return r == Updated || r == Appended }

// Store holds one series. Designed for single-goroutine usage: the chart
// event loop is the only writer, so no locks are needed.
type Store struct {
	key    model.SeriesKey
	bars   []model.Bar
	loaded bool

	// Metrics hooks
	OnStaleTick func(t model.Tick) // called when a stale tick is rejected (optional)
	OnNewBar    func(b model.Bar)  // called when a tick opens a new bar (optional)
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Replace swaps in a full history for key. This is the only way the series
// changes wholesale; ticks never trigger it.
func (s *Store) Replace(key model.SeriesKey, bars []model.Bar) {
	cp := make([]model.Bar, len(bars))
	copy(cp, bars)
	s.key = key
	s.bars = cp
	s.loaded = true
}

// Reset drops the history, e.g. while a new key is being fetched.
func (s *Store) Reset(key model.SeriesKey) {
	s.key = key
	s.bars = nil
	s.loaded = false
}

// Key returns the key of the held series.
func (s *Store) Key() model.SeriesKey { return s.key }

// Loaded reports whether a history has been installed for the current key.
func (s *Store) Loaded() bool { return s.loaded }

// Len returns the number of bars.
func (s *Store) Len() int { return len(s.bars) }

// Bars returns the held bars. The slice is shared with the store and must be
// treated as read-only; it stays valid until the next mutation.
func (s *Store) Bars() []model.Bar { return s.bars }

// Snapshot returns a copy of the bars.
func (s *Store) Snapshot() []model.Bar {
	cp := make([]model.Bar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// Last returns the forming bar.
func (s *Store) Last() (model.Bar, bool) {
	if len(s.bars) == 0 {
		return model.Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Merge folds a tick into the series.
func (s *Store) Merge(t model.Tick) MergeResult {
	if !s.loaded || len(s.bars) == 0 || t.Symbol != s.key.Symbol || t.Price <= 0 {
		return Ignored
	}
	width := s.key.Interval.Duration()
	if width <= 0 {
		return Ignored
	}

	last := &s.bars[len(s.bars)-1]
	bucket := Bucket(t.Timestamp, width)
	current := Bucket(last.Timestamp, width)

	switch {
	case bucket.Before(current):
		if s.OnStaleTick != nil {
			s.OnStaleTick(t)
		}
		return Stale

	case bucket.After(current):
		// New bucket, open a bar at the tick price
		bar := model.Bar{
			Timestamp: bucket,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    t.Volume,
		}
		s.bars = append(s.bars, bar)
		if s.OnNewBar != nil {
			s.OnNewBar(bar)
		}
		return Appended
	}

	// Same bucket, merge OHLCV (O(1))
	if t.Price > last.High {
		last.High = t.Price
	}
	if t.Price < last.Low {
		last.Low = t.Price
	}
	last.Close = t.Price
	last.Volume += t.Volume
	return Updated
}

// Bucket aligns ts to the start of its interval bucket in UTC. Weekly buckets
// start on Monday; daily and shorter buckets align to UTC midnight.
func Bucket(ts time.Time, width time.Duration) time.Time {
	ts = ts.UTC()
	if width == 7*24*time.Hour {
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		return day.AddDate(0, 0, -offset)
	}
	return ts.Truncate(width)
}
