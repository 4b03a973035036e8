// Package scale maps between the data domain (price, bar index) and pixel
// space for one render pass.
package scale

import (
	"math"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// Headroom applied below the lowest low and above the highest high.
const (
	LowHeadroom  = 0.98
	HighHeadroom = 1.02
)

// Padding insets the plot rectangle inside the drawing surface.
type Padding struct {
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Context is the derived mapping for one render pass. Never persisted.
type Context struct {
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`
	N        int     `json:"n"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Padding  Padding `json:"padding"`
}

// New derives a context from the visible bars. The price domain is
// [min(low)*0.98, max(high)*1.02]; a collapsed domain falls back to a small
// range centred on the value.
func New(bars []model.Bar, width, height float64, pad Padding) Context {
	ctx := Context{N: len(bars), Width: width, Height: height, Padding: pad}
	if len(bars) == 0 {
		ctx.PriceMin, ctx.PriceMax = -1, 1
		return ctx
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}
	ctx.PriceMin, ctx.PriceMax = Domain(lo, hi)
	return ctx
}

// Domain applies the headroom to [lo, hi] and widens a degenerate result.
func Domain(lo, hi float64) (float64, float64) {
	from, to := lo*LowHeadroom, hi*HighHeadroom
	if from > to {
		from, to = to, from
	}
	if span := to - from; span > 0 && !math.IsInf(span, 0) {
		return from, to
	}
	centre := (lo + hi) / 2
	delta := math.Abs(centre) * 0.01
	if delta == 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 1
		if math.IsNaN(centre) || math.IsInf(centre, 0) {
			centre = 0
		}
	}
	return centre - delta, centre + delta
}

// Plot returns the padded plot rectangle.
func (c Context) Plot() Rect {
	w := math.Max(c.Width-c.Padding.Left-c.Padding.Right, 0)
	h := math.Max(c.Height-c.Padding.Top-c.Padding.Bottom, 0)
	return Rect{X: c.Padding.Left, Y: c.Padding.Top, W: w, H: h}
}

// Contains reports whether the point is inside the plot rectangle.
func (c Context) Contains(x, y float64) bool {
	return c.Plot().Contains(x, y)
}

// ScaleY maps a price to a y pixel. Decreasing in price, clamped to the plot
// rectangle. With zero padding:
//
//	y = height - (price-min)/(max-min)*height
func (c Context) ScaleY(price float64) float64 {
	p := c.Plot()
	span := c.PriceMax - c.PriceMin
	if span <= 0 || math.IsNaN(price) {
		return p.Y + p.H/2
	}
	y := p.Y + p.H - ((price-c.PriceMin)/span)*p.H
	return clamp(y, p.Y, p.Bottom())
}

// PriceAt is the inverse of ScaleY.
func (c Context) PriceAt(y float64) float64 {
	p := c.Plot()
	if p.H == 0 {
		return (c.PriceMin + c.PriceMax) / 2
	}
	return c.PriceMin + (p.Bottom()-y)/p.H*(c.PriceMax-c.PriceMin)
}

// ScaleX maps a bar index to an x pixel:
//
//	x = left + i/(n-1)*width
//
// A single bar sits in the middle of the plot.
func (c Context) ScaleX(i int) float64 {
	p := c.Plot()
	if c.N <= 1 {
		return p.X + p.W/2
	}
	return p.X + float64(i)/float64(c.N-1)*p.W
}

// UnscaleX maps an x pixel to the nearest bar index, clamped to [0, n-1].
func (c Context) UnscaleX(x float64) int {
	p := c.Plot()
	if c.N <= 1 || p.W == 0 {
		return 0
	}
	i := int(math.Round((x - p.X) / p.W * float64(c.N-1)))
	if i < 0 {
		return 0
	}
	if i > c.N-1 {
		return c.N - 1
	}
	return i
}

// Slot returns the horizontal space available to one bar.
func (c Context) Slot() float64 {
	p := c.Plot()
	if c.N <= 1 {
		return p.W
	}
	return p.W / float64(c.N-1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
