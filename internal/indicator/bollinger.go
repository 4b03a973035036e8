package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Bollinger returns the Bollinger envelope over window w with band width k
// standard deviations. The middle band is SMA(prices, w); the deviation is
// the population standard deviation of each window.
func Bollinger(prices []float64, w int, k float64) []Band {
	middle := SMA(prices, w)
	if len(middle) == 0 {
		return []Band{}
	}

	out := make([]Band, len(middle))
	for i, m := range middle {
		_, variance := stat.PopMeanVariance(prices[i:i+w], nil)
		sd := math.Sqrt(math.Max(variance, 0))
		out[i] = Band{
			Upper:  m + k*sd,
			Middle: m,
			Lower:  m - k*sd,
		}
	}
	return out
}
