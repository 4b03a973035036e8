package render

import (
	"strconv"

	"github.com/michalhajok/trackerF-sub001/internal/indicator"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// Overlay draws indicator results on the price scale. Value j of a result is
// placed at bar index Offset+j; a result whose offset does not line it up
// with the end of the series is skipped rather than drawn shifted.
//
// RSI lives on a 0..100 scale, so it is reported in the legend only.
func Overlay(results []indicator.Result, bars []model.Bar, ctx scale.Context, th Theme) []Primitive {
	n := len(bars)
	if n == 0 || ctx.N != n {
		return nil
	}

	var out []Primitive
	var legend []legendEntry
	for i, r := range results {
		if r.Empty() || !r.Aligned(n) {
			continue
		}
		color := th.color(i)
		switch r.Kind {
		case indicator.KindSMA, indicator.KindEMA:
			pts := valuePoints(r.Values, r.Offset, ctx)
			if len(pts) > 0 {
				out = append(out, Polyline(pts, Style{Stroke: color, Width: th.LineWidth}))
			}
		case indicator.KindBollinger:
			out = append(out, bands(r, ctx, color, th)...)
		case indicator.KindRSI:
			// legend only
		default:
			continue
		}
		if last, ok := r.Last(); ok {
			legend = append(legend, legendEntry{text: r.Name + " " + legendValue(r.Kind, last), color: color})
		}
	}
	return append(out, legendRow(legend, ctx, th)...)
}

func valuePoints(values []float64, offset int, ctx scale.Context) []Point {
	pts := make([]Point, 0, len(values))
	for j, v := range values {
		if !finite(v) {
			continue
		}
		pts = append(pts, Point{X: ctx.ScaleX(offset + j), Y: ctx.ScaleY(v)})
	}
	return pts
}

func bands(r indicator.Result, ctx scale.Context, color string, th Theme) []Primitive {
	upper := make([]float64, len(r.Bands))
	middle := make([]float64, len(r.Bands))
	lower := make([]float64, len(r.Bands))
	for j, b := range r.Bands {
		upper[j], middle[j], lower[j] = b.Upper, b.Middle, b.Lower
	}
	up := valuePoints(upper, r.Offset, ctx)
	mid := valuePoints(middle, r.Offset, ctx)
	lo := valuePoints(lower, r.Offset, ctx)
	if len(up) == 0 || len(up) != len(lo) {
		return nil
	}

	// Envelope: upper left-to-right, then lower right-to-left.
	env := make([]Point, 0, 2*len(up))
	env = append(env, up...)
	for j := len(lo) - 1; j >= 0; j-- {
		env = append(env, lo[j])
	}
	edge := Style{Stroke: color, Width: 1, Dash: []float64{4, 3}}
	return []Primitive{
		Polygon(env, Style{Fill: th.BandFill}),
		Polyline(up, edge),
		Polyline(mid, Style{Stroke: color, Width: th.LineWidth}),
		Polyline(lo, edge),
	}
}

type legendEntry struct {
	text  string
	color string
}

func legendRow(entries []legendEntry, ctx scale.Context, th Theme) []Primitive {
	if len(entries) == 0 {
		return nil
	}
	plot := ctx.Plot()
	x := plot.X + 4
	y := plot.Y - th.FontSize/2
	if y < th.FontSize {
		y = plot.Y + th.FontSize
	}
	out := make([]Primitive, 0, len(entries))
	for _, e := range entries {
		out = append(out, Text(x, y, e.text, AlignLeft, Style{Fill: e.color, FontSize: th.FontSize}))
		x += estimateWidth(e.text, th.FontSize) + 12
	}
	return out
}

func legendValue(k indicator.Kind, v float64) string {
	if k == indicator.KindRSI {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return FormatPrice(v)
}

// estimateWidth approximates rendered text width for layout purposes.
func estimateWidth(s string, fontSize float64) float64 {
	return float64(len(s)) * fontSize * 0.6
}
