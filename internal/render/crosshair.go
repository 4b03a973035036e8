package render

import (
	"math"

	"github.com/michalhajok/trackerF-sub001/internal/interaction"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

const (
	tooltipPad    = 6.0
	tooltipOffset = 12.0
)

// Crosshair draws the guide lines and tooltip for a visible crosshair. The
// vertical guide snaps to the hovered bar; the horizontal guide follows the
// pointer and is labelled with the price under it.
func Crosshair(st interaction.CrosshairState, tip interaction.Tooltip, g scale.Geometry, th Theme) []Primitive {
	ctx := g.Price
	if !st.Visible || ctx.N == 0 || st.NearestIndex < 0 || st.NearestIndex >= ctx.N {
		return nil
	}
	plot := ctx.Plot()
	guide := Style{Stroke: th.Crosshair, Width: 1, Dash: []float64{3, 3}}
	x := ctx.ScaleX(st.NearestIndex)

	out := []Primitive{Line(x, plot.Y, x, g.Floor(), guide)}

	if ctx.Contains(st.PointerX, st.PointerY) {
		y := st.PointerY
		out = append(out,
			Line(plot.X, y, plot.Right(), y, guide),
			Rect(plot.Right(), y-th.FontSize/2-2, ctx.Padding.Right, th.FontSize+4, Style{Fill: th.Crosshair}),
			Text(plot.Right()+4, y+th.FontSize/3, FormatPrice(ctx.PriceAt(y)), AlignLeft, Style{Fill: th.Background, FontSize: th.FontSize}),
		)
	}

	rows := []string{tip.Time, "C " + FormatPrice(tip.Close), "V " + FormatVolume(tip.Volume)}
	boxW := 0.0
	for _, r := range rows {
		boxW = math.Max(boxW, estimateWidth(r, th.FontSize))
	}
	boxW += 2 * tooltipPad
	lineH := th.FontSize + 4
	boxH := float64(len(rows))*lineH + tooltipPad

	// Flip to the left of the guide when the box would leave the plot.
	bx := x + tooltipOffset
	if bx+boxW > plot.Right() {
		bx = x - tooltipOffset - boxW
	}
	if bx < plot.X {
		bx = plot.X
	}
	by := plot.Y + tooltipPad

	out = append(out, Rect(bx, by, boxW, boxH, Style{Fill: th.TooltipFill, Stroke: th.Grid, Width: 1}))
	for k, r := range rows {
		out = append(out, Text(bx+tooltipPad, by+float64(k+1)*lineH, r, AlignLeft, Style{Fill: th.TooltipText, FontSize: th.FontSize}))
	}
	return out
}

// Placeholder draws a centred status message, used for loading, empty and
// error frames.
func Placeholder(message string, width, height float64, th Theme) []Primitive {
	if message == "" || width <= 0 || height <= 0 {
		return nil
	}
	return []Primitive{
		Rect(0, 0, width, height, Style{Fill: th.Background}),
		Text(width/2, height/2, message, AlignCenter, Style{Fill: th.StatusText, FontSize: th.FontSize + 2}),
	}
}

// Badge draws a small label in the top-right corner, e.g. the offline
// indicator or the quote header.
func Badge(text, color string, width float64, th Theme) Primitive {
	return Text(width-8, th.FontSize+4, text, AlignRight, Style{Fill: color, FontSize: th.FontSize})
}
