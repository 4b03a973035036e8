package render

import (
	"math"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// Axis draws evenly spaced price gridlines with labels on the right, and
// evenly spaced time labels along the bottom formatted for the period.
func Axis(bars []model.Bar, g scale.Geometry, period model.Period, th Theme) []Primitive {
	ctx := g.Price
	if len(bars) == 0 || ctx.N != len(bars) {
		return nil
	}
	plot := ctx.Plot()
	gridStyle := Style{Stroke: th.Grid, Width: 1}
	textStyle := th.text()

	out := make([]Primitive, 0, th.GridLines*2+th.TimeLabels*2)
	for _, p := range PriceTicks(ctx.PriceMin, ctx.PriceMax, th.GridLines) {
		y := ctx.ScaleY(p)
		out = append(out,
			Line(plot.X, y, plot.Right(), y, gridStyle),
			Text(plot.Right()+4, y+th.FontSize/3, FormatPrice(p), AlignLeft, textStyle),
		)
	}

	floor := g.Floor()
	for _, i := range TimeTicks(len(bars), th.TimeLabels) {
		x := ctx.ScaleX(i)
		out = append(out,
			Line(x, plot.Y, x, floor, gridStyle),
			Text(x, g.TimeAxisY+th.FontSize/3, period.AxisLabel(bars[i].Timestamp), AlignCenter, textStyle),
		)
	}
	return out
}

// PriceTicks returns count evenly spaced prices from min to max inclusive.
func PriceTicks(min, max float64, count int) []float64 {
	if count < 2 || !(max > min) {
		return nil
	}
	step := (max - min) / float64(count-1)
	out := make([]float64, count)
	for k := range out {
		out[k] = min + float64(k)*step
	}
	return out
}

// TimeTicks returns up to count evenly spaced, distinct bar indices covering
// the first and the last bar.
func TimeTicks(n, count int) []int {
	if n <= 0 || count <= 0 {
		return nil
	}
	if n == 1 || count == 1 {
		return []int{0}
	}
	if count > n {
		count = n
	}
	out := make([]int, 0, count)
	for k := 0; k < count; k++ {
		i := int(math.Round(float64(k) * float64(n-1) / float64(count-1)))
		if len(out) > 0 && out[len(out)-1] == i {
			continue
		}
		out = append(out, i)
	}
	return out
}
