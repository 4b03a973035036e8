// Package export draws chart frames to PNG or SVG through go-chart's
// renderers.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Options controls image output.
type Options struct {
	Format     Format
	Background string // CSS hex; empty leaves the canvas transparent
}

// Write draws every layer of f in order and writes the encoded image to w.
func Write(w io.Writer, f chart.Frame, opts Options) error {
	width, height := int(math.Round(f.Width)), int(math.Round(f.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("export: empty surface %dx%d", width, height)
	}

	provider := gochart.PNG
	if opts.Format == SVG {
		provider = gochart.SVG
	}
	r, err := provider(width, height)
	if err != nil {
		return fmt.Errorf("export: new renderer: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("export: load font: %w", err)
	}

	if opts.Background != "" {
		drawPrimitive(r, render.Rect(0, 0, f.Width, f.Height, render.Style{Fill: opts.Background}), nil)
	}
	for _, layer := range f.Layers {
		for _, p := range layer.Primitives {
			drawPrimitive(r, p, font)
		}
	}
	return r.Save(w)
}

func drawPrimitive(r gochart.Renderer, p render.Primitive, font *truetype.Font) {
	r.ResetStyle()
	s := p.Style
	stroke, hasStroke := parseColor(s.Stroke)
	fill, hasFill := parseColor(s.Fill)
	if hasStroke {
		r.SetStrokeColor(stroke)
		w := s.Width
		if w <= 0 {
			w = 1
		}
		r.SetStrokeWidth(w)
		if len(s.Dash) > 0 {
			r.SetStrokeDashArray(s.Dash)
		}
	}
	if hasFill {
		r.SetFillColor(fill)
	}

	switch p.Kind {
	case render.KindPolyline:
		if len(p.Points) < 2 || !hasStroke {
			return
		}
		path(r, p.Points)
		r.Stroke()

	case render.KindPolygon:
		if len(p.Points) < 3 {
			return
		}
		path(r, p.Points)
		r.Close()
		paint(r, hasFill, hasStroke)

	case render.KindRect:
		path(r, []render.Point{
			{X: p.X, Y: p.Y}, {X: p.X + p.W, Y: p.Y},
			{X: p.X + p.W, Y: p.Y + p.H}, {X: p.X, Y: p.Y + p.H},
		})
		r.Close()
		paint(r, hasFill, hasStroke)

	case render.KindLine:
		if !hasStroke {
			return
		}
		r.MoveTo(px(p.X), px(p.Y))
		r.LineTo(px(p.X2), px(p.Y2))
		r.Stroke()

	case render.KindText:
		if p.Text == "" || !hasFill {
			return
		}
		if font != nil {
			r.SetFont(font)
		}
		size := s.FontSize
		if size <= 0 {
			size = 10
		}
		r.SetFontSize(size)
		r.SetFontColor(fill)
		x := p.X
		switch p.Align {
		case render.AlignCenter:
			x -= float64(r.MeasureText(p.Text).Width()) / 2
		case render.AlignRight:
			x -= float64(r.MeasureText(p.Text).Width())
		}
		r.Text(p.Text, px(x), px(p.Y))
	}
}

func path(r gochart.Renderer, pts []render.Point) {
	r.MoveTo(px(pts[0].X), px(pts[0].Y))
	for _, pt := range pts[1:] {
		r.LineTo(px(pt.X), px(pt.Y))
	}
}

func paint(r gochart.Renderer, fill, stroke bool) {
	switch {
	case fill && stroke:
		r.FillStroke()
	case fill:
		r.Fill()
	case stroke:
		r.Stroke()
	}
}

func px(v float64) int { return int(math.Round(v)) }

// parseColor parses "#rgb", "#rrggbb" or "#rrggbbaa". An empty or malformed
// value reports false.
func parseColor(s string) (drawing.Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return drawing.Color{}, false
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return drawing.Color{}, false
	}
	return drawing.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}
