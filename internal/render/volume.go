package render

import (
	"math"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// Volume draws one bar per point in the volume strip, scaled to the largest
// volume in the visible window.
func Volume(bars []model.Bar, g scale.Geometry, th Theme) []Primitive {
	if len(bars) == 0 || g.Price.N != len(bars) || !g.HasVolume() {
		return nil
	}

	maxV := 0.0
	for _, b := range bars {
		if finite(b.Volume) && b.Volume > maxV {
			maxV = b.Volume
		}
	}
	if maxV <= 0 {
		return nil
	}

	w := math.Max(g.Price.Slot()*0.8, 1)
	if w > th.MaxBody {
		w = th.MaxBody
	}
	strip := g.Volume
	out := make([]Primitive, 0, len(bars))
	for i, b := range bars {
		if !finite(b.Volume) || b.Volume <= 0 {
			continue
		}
		h := b.Volume / maxV * strip.H
		color := th.VolumeDown
		if b.Up() {
			color = th.VolumeUp
		}
		x := g.Price.ScaleX(i)
		out = append(out, Rect(x-w/2, strip.Bottom()-h, w, h, Style{Fill: color}))
	}
	return out
}
