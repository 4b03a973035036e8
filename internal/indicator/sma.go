package indicator

// SMA returns the simple moving average of prices over window w.
// Length is n-w+1; value[i] is the mean of prices[i..i+w-1].
// Uses a rolling sum so the whole series is O(n).
func SMA(prices []float64, w int) []float64 {
	n := len(prices)
	if w <= 0 || n < w {
		return []float64{}
	}

	out := make([]float64, n-w+1)
	sum := 0.0
	for i := 0; i < w; i++ {
		sum += prices[i]
	}
	out[0] = sum / float64(w)

	for i := w; i < n; i++ {
		// Slide: drop the oldest, add the newest
		sum += prices[i] - prices[i-w]
		out[i-w+1] = sum / float64(w)
	}
	return out
}
