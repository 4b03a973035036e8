// Package indicator provides technical indicator calculations over a close
// price series.
//
// Every function is pure: it reads the input slice, never mutates it, and
// returns a fresh slice. A window larger than the series yields an empty
// result rather than an error; callers treat absence as "not enough data".
package indicator

import "strconv"

// Kind identifies an indicator family.
type Kind string

const (
	KindSMA       Kind = "SMA"
	KindEMA       Kind = "EMA"
	KindRSI       Kind = "RSI"
	KindBollinger Kind = "BB"
)

// Band is one Bollinger envelope sample.
type Band struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Result is an indicator series aligned to a suffix of the source series.
// Offset is the source index of the first value, so Offset+Len() equals the
// source length. Scalar kinds fill Values; Bollinger fills Bands.
type Result struct {
	Name   string    `json:"name"`
	Kind   Kind      `json:"kind"`
	Window int       `json:"window"`
	Offset int       `json:"offset"`
	Values []float64 `json:"values,omitempty"`
	Bands  []Band    `json:"bands,omitempty"`
}

// Len returns the number of samples in the result.
func (r Result) Len() int {
	if r.Kind == KindBollinger {
		return len(r.Bands)
	}
	return len(r.Values)
}

// Empty reports whether the result carries no samples.
func (r Result) Empty() bool { return r.Len() == 0 }

// Aligned reports whether the result covers exactly the suffix of a series
// of length n.
func (r Result) Aligned(n int) bool {
	return r.Offset >= 0 && r.Offset+r.Len() == n
}

// At returns the scalar value at source index i, if the result covers it.
// For Bollinger results the middle band is returned.
func (r Result) At(i int) (float64, bool) {
	j := i - r.Offset
	if j < 0 || j >= r.Len() {
		return 0, false
	}
	if r.Kind == KindBollinger {
		return r.Bands[j].Middle, true
	}
	return r.Values[j], true
}

// Last returns the final scalar value, if any.
func (r Result) Last() (float64, bool) {
	return r.At(r.Offset + r.Len() - 1)
}

func itoaInd(n int) string { return strconv.Itoa(n) }
