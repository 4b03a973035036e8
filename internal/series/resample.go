package series

import (
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// Resample folds ordered bars into buckets of the given width: first open,
// max high, min low, last close, summed volume. Each output bar is stamped
// with its bucket start. Bars already at or above the width pass through
// with aligned timestamps.
func Resample(bars []model.Bar, width time.Duration) []model.Bar {
	if len(bars) == 0 || width <= 0 {
		return nil
	}
	out := make([]model.Bar, 0, len(bars))
	var cur model.Bar
	started := false

	for _, b := range bars {
		bucket := Bucket(b.Timestamp, width)
		if started && bucket.Equal(cur.Timestamp) {
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		if started {
			out = append(out, cur)
		}
		cur = b
		cur.Timestamp = bucket
		started = true
	}
	return append(out, cur)
}
