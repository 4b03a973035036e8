package indicator

// EMA returns the exponential moving average of prices with smoothing
// k = 2/(w+1). The series is seeded with the first raw price, so the output
// has the same length as the input.
func EMA(prices []float64, w int) []float64 {
	n := len(prices)
	if w <= 0 || n < w {
		return []float64{}
	}

	k := 2.0 / float64(w+1)
	out := make([]float64, n)
	out[0] = prices[0]
	for i := 1; i < n; i++ {
		// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}
