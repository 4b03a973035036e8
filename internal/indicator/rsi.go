package indicator

// RSI returns the Relative Strength Index over window w using Wilder's
// smoothing. The first value uses the plain average of the first w deltas.
// Output length is n-w and every value lies in [0, 100].
func RSI(prices []float64, w int) []float64 {
	n := len(prices)
	if w <= 0 || n <= w {
		return []float64{}
	}

	out := make([]float64, 0, n-w)
	avgGain, avgLoss := 0.0, 0.0

	// Accumulation phase: build initial averages
	for i := 1; i <= w; i++ {
		gain, loss := split(prices[i] - prices[i-1])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(w)
	avgGain /= p
	avgLoss /= p
	out = append(out, rsiValue(avgGain, avgLoss))

	// Wilder's smoothing: avg = (prevAvg * (period-1) + x) / period
	for i := w + 1; i < n; i++ {
		gain, loss := split(prices[i] - prices[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// rsiValue maps the smoothed averages to [0,100]. A zero average loss means
// RS is unbounded, which is clamped to 100 instead of dividing by zero.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	v := 100.0 - (100.0 / (1.0 + rs))
	if v < 0 {
		return 0
	}
	return v
}
