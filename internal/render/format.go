package render

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatPrice renders a price with thousands separators and two decimals.
func FormatPrice(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(math.Round(p*100)/100, 2)
}

// FormatVolume renders a volume with an SI suffix, e.g. "1.2 M".
func FormatVolume(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	if math.Abs(v) < 1000 {
		return humanize.Ftoa(math.Round(v))
	}
	return humanize.SIWithDigits(v, 1, "")
}
