package render

import (
	"math"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// Price draws the price series in the selected style.
func Price(kind ChartType, bars []model.Bar, ctx scale.Context, th Theme) []Primitive {
	if len(bars) == 0 || ctx.N != len(bars) {
		return nil
	}
	switch kind {
	case ChartArea:
		return Area(bars, ctx, th)
	case ChartCandlestick:
		return Candlesticks(bars, ctx, th)
	default:
		return LineSeries(bars, ctx, th)
	}
}

// LineSeries draws a single polyline through the closes.
func LineSeries(bars []model.Bar, ctx scale.Context, th Theme) []Primitive {
	pts := closePoints(bars, ctx)
	if len(pts) == 0 {
		return nil
	}
	return []Primitive{Polyline(pts, Style{Stroke: th.Line, Width: th.LineWidth})}
}

// Area draws the close polyline plus the region between it and the plot
// floor. The fill is emitted first so the line stays on top.
func Area(bars []model.Bar, ctx scale.Context, th Theme) []Primitive {
	pts := closePoints(bars, ctx)
	if len(pts) == 0 {
		return nil
	}
	floor := ctx.Plot().Bottom()
	poly := make([]Point, 0, len(pts)+2)
	poly = append(poly, pts...)
	poly = append(poly, Point{X: pts[len(pts)-1].X, Y: floor}, Point{X: pts[0].X, Y: floor})
	return []Primitive{
		Polygon(poly, Style{Fill: th.AreaFill}),
		Polyline(pts, Style{Stroke: th.Line, Width: th.LineWidth}),
	}
}

// Candlesticks draws a wick spanning [low, high] and an open/close body per
// bar. Bodies are at least one pixel tall so flat bars stay visible.
func Candlesticks(bars []model.Bar, ctx scale.Context, th Theme) []Primitive {
	bodyW := math.Min(math.Max(ctx.Slot()*0.7, 1), th.MaxBody)
	out := make([]Primitive, 0, 2*len(bars))

	for i, b := range bars {
		if !finite(b.Open, b.High, b.Low, b.Close) {
			continue
		}
		color := th.Down
		if b.Up() {
			color = th.Up
		}
		x := ctx.ScaleX(i)
		out = append(out, Line(x, ctx.ScaleY(b.High), x, ctx.ScaleY(b.Low), Style{Stroke: color, Width: 1}))

		yOpen, yClose := ctx.ScaleY(b.Open), ctx.ScaleY(b.Close)
		top := math.Min(yOpen, yClose)
		h := math.Abs(yOpen - yClose)
		if h < 1 {
			h = 1
		}
		out = append(out, Rect(x-bodyW/2, top, bodyW, h, Style{Fill: color, Stroke: color, Width: 1}))
	}
	return out
}

func closePoints(bars []model.Bar, ctx scale.Context) []Point {
	pts := make([]Point, 0, len(bars))
	for i, b := range bars {
		if !finite(b.Close) {
			continue
		}
		pts = append(pts, Point{X: ctx.ScaleX(i), Y: ctx.ScaleY(b.Close)})
	}
	return pts
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
