package indicator

import "github.com/michalhajok/trackerF-sub001/internal/model"

// Closes extracts the close price series from bars.
func Closes(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Evaluate computes a single spec over closes. The returned Result is empty
// when the series is shorter than the window.
func Evaluate(closes []float64, spec Spec) Result {
	r := Result{Name: spec.Name(), Kind: spec.Kind, Window: spec.Window}
	n := len(closes)

	switch spec.Kind {
	case KindSMA:
		r.Values = SMA(closes, spec.Window)
	case KindEMA:
		r.Values = EMA(closes, spec.Window)
	case KindRSI:
		r.Values = RSI(closes, spec.Window)
	case KindBollinger:
		r.Bands = Bollinger(closes, spec.Window, spec.K)
	}
	r.Offset = n - r.Len()
	return r
}

// Compute evaluates every enabled spec in order. Specs that cannot be
// computed for lack of data are omitted.
func Compute(closes []float64, specs []Spec) []Result {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		r := Evaluate(closes, spec)
		if r.Empty() {
			continue
		}
		results = append(results, r)
	}
	return results
}
