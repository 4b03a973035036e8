package scale

import "github.com/michalhajok/trackerF-sub001/internal/model"

// Geometry splits the drawing surface into a price plot and an optional
// volume strip that share the same horizontal index mapping.
type Geometry struct {
	Surface Rect    `json:"surface"`
	Price   Context `json:"price"`
	Volume  Rect    `json:"volume"` // zero when volume is hidden
	// TimeAxisY is the baseline for time labels, below every plot region.
	TimeAxisY float64 `json:"time_axis_y"`
}

// Layout derives the geometry for bars on a width x height surface.
// volumeRatio is the share of the padded height given to the volume strip;
// zero hides it.
func Layout(bars []model.Bar, width, height float64, pad Padding, volumeRatio float64) Geometry {
	surface := Rect{W: width, H: height}
	innerH := height - pad.Top - pad.Bottom
	if innerH < 0 {
		innerH = 0
	}
	if volumeRatio < 0 {
		volumeRatio = 0
	}
	if volumeRatio > 0.5 {
		volumeRatio = 0.5
	}

	volH := innerH * volumeRatio
	pricePad := pad
	pricePad.Bottom += volH

	g := Geometry{
		Surface:   surface,
		Price:     New(bars, width, height, pricePad),
		TimeAxisY: height - pad.Bottom/2,
	}
	if volH > 0 {
		plot := g.Price.Plot()
		g.Volume = Rect{X: plot.X, Y: height - pad.Bottom - volH, W: plot.W, H: volH}
	}
	return g
}

// HasVolume reports whether a volume strip was laid out.
func (g Geometry) HasVolume() bool { return g.Volume.H > 0 }

// Hit reports whether a pointer at (x, y) is over the price plot or the
// volume strip.
func (g Geometry) Hit(x, y float64) bool {
	if g.Price.Contains(x, y) {
		return true
	}
	return g.HasVolume() && g.Volume.Contains(x, y)
}

// Floor returns the lowest y of the plotted regions.
func (g Geometry) Floor() float64 {
	if g.HasVolume() {
		return g.Volume.Bottom()
	}
	return g.Price.Plot().Bottom()
}
