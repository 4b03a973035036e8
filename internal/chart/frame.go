package chart

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/indicator"
	"github.com/michalhajok/trackerF-sub001/internal/interaction"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// IndicatorValue is the legend entry of one enabled indicator.
type IndicatorValue struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value,omitempty"`
	Available bool    `json:"available"`
}

// Frame is one rendered state of the chart surface.
type Frame struct {
	Status     Status                     `json:"status"`
	Message    string                     `json:"message,omitempty"`
	Key        string                     `json:"key"`
	ChartType  render.ChartType           `json:"chart_type"`
	Width      float64                    `json:"width"`
	Height     float64                    `json:"height"`
	Layers     []render.Layer             `json:"layers"`
	Crosshair  interaction.CrosshairState `json:"crosshair"`
	Tooltip    *interaction.Tooltip       `json:"tooltip,omitempty"`
	Indicators []IndicatorValue           `json:"indicators,omitempty"`
	Offline    bool                       `json:"offline"`
	Quote      *model.Quote               `json:"quote,omitempty"`
	Fullscreen bool                       `json:"fullscreen"`
}

// Layer returns the named layer, if present.
func (f Frame) Layer(name render.LayerName) (render.Layer, bool) {
	for _, l := range f.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return render.Layer{}, false
}

// Frame runs the pipeline and returns the current frame. The data layers
// are cached until a data or presentation change marks them dirty; the
// crosshair layer is rebuilt on every call.
func (c *Chart) Frame() Frame {
	f := Frame{
		Status:     c.status,
		Message:    c.message,
		Key:        c.cfg.Key.String(),
		ChartType:  c.cfg.ChartType,
		Width:      c.cfg.Width,
		Height:     c.cfg.Height,
		Offline:    c.offline,
		Quote:      c.quote,
		Fullscreen: c.fullscreen,
	}

	// A failed or pending load short-circuits to a placeholder; nothing is
	// drawn from stale data.
	if c.status != StatusReady {
		c.ctrl.Leave()
		f.Layers = []render.Layer{{
			Name:       render.LayerStatus,
			Primitives: append(render.Placeholder(c.message, c.cfg.Width, c.cfg.Height, c.theme), c.badges()...),
		}}
		return f
	}

	c.refresh()
	st := c.ctrl.Rebind(c.geom)
	f.Crosshair = st

	var tip interaction.Tooltip
	if t, ok := c.ctrl.Tooltip(c.store.Bars(), c.cfg.Key.Period); ok {
		tip = t
		f.Tooltip = &t
	}
	f.Indicators = c.indicatorValues(st)

	f.Layers = make([]render.Layer, 0, len(c.base)+2)
	f.Layers = append(f.Layers, c.base...)
	f.Layers = append(f.Layers,
		render.Layer{Name: render.LayerCrosshair, Primitives: c.safeLayer(render.LayerCrosshair, func() []render.Primitive {
			return render.Crosshair(st, tip, c.geom, c.theme)
		})},
		render.Layer{Name: render.LayerStatus, Primitives: c.badges()},
	)
	return f
}

// geometry returns the layout for the current series, refreshing the
// pipeline first if needed.
func (c *Chart) geometry() scale.Geometry {
	c.refresh()
	return c.geom
}

// refresh recomputes indicators, scales and the cached data layers in
// fixed z-order: price, overlay, volume, axis.
func (c *Chart) refresh() {
	if !c.dirty {
		return
	}
	start := time.Now()
	bars := c.store.Bars()

	c.results = nil
	if c.cfg.ShowIndicators {
		c.results = indicator.Compute(indicator.Closes(bars), c.cfg.Indicators)
	}

	ratio := 0.0
	if c.cfg.ShowVolume {
		ratio = c.theme.VolumeRatio
	}
	c.geom = scale.Layout(bars, c.cfg.Width, c.cfg.Height, c.theme.Padding, ratio)

	g, th, period := c.geom, c.theme, c.cfg.Key.Period
	c.base = []render.Layer{
		{Name: render.LayerPrice, Primitives: c.safeLayer(render.LayerPrice, func() []render.Primitive {
			return render.Price(c.cfg.ChartType, bars, g.Price, th)
		})},
		{Name: render.LayerOverlay, Primitives: c.safeLayer(render.LayerOverlay, func() []render.Primitive {
			return render.Overlay(c.results, bars, g.Price, th)
		})},
		{Name: render.LayerVolume, Primitives: c.safeLayer(render.LayerVolume, func() []render.Primitive {
			return render.Volume(bars, g, th)
		})},
		{Name: render.LayerAxis, Primitives: c.safeLayer(render.LayerAxis, func() []render.Primitive {
			return render.Axis(bars, g, period, th)
		})},
	}
	c.dirty = false
	c.metrics.ObserveFrame(time.Since(start))
}

// safeLayer runs one renderer, turning a panic into an empty layer.
func (c *Chart) safeLayer(name render.LayerName, fn func() []render.Primitive) (out []render.Primitive) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("render layer panicked", "layer", string(name), "key", c.cfg.Key.String(), "panic", fmt.Sprint(r))
			c.metrics.ObserveLayerPanic(string(name))
			out = nil
		}
	}()
	return fn()
}

// indicatorValues reports each enabled indicator at the hovered bar, or at
// the last bar when nothing is hovered.
func (c *Chart) indicatorValues(st interaction.CrosshairState) []IndicatorValue {
	if !c.cfg.ShowIndicators {
		return nil
	}
	n := c.store.Len()
	idx := n - 1
	if st.Visible {
		idx = st.NearestIndex
	}
	byName := make(map[string]indicator.Result, len(c.results))
	for _, r := range c.results {
		byName[r.Name] = r
	}

	var out []IndicatorValue
	for _, s := range c.cfg.Indicators {
		if !s.Enabled {
			continue
		}
		iv := IndicatorValue{Name: s.Name()}
		if r, ok := byName[iv.Name]; ok && r.Aligned(n) {
			iv.Value, iv.Available = r.At(idx)
		}
		out = append(out, iv)
	}
	return out
}

// badges draws the quote header and the offline marker.
func (c *Chart) badges() []render.Primitive {
	text := ""
	color := c.theme.AxisText
	if q := c.quote; q != nil {
		text = fmt.Sprintf("%s %s %+.2f%%", q.Symbol, render.FormatPrice(q.CurrentPrice), q.ChangePercent)
		color = c.theme.Up
		if q.ChangePercent < 0 {
			color = c.theme.Down
		}
	}
	if c.offline {
		if text != "" {
			text += "  "
		}
		text += "OFFLINE"
		color = c.theme.Down
	}
	if text == "" || c.cfg.Width <= 0 {
		return nil
	}
	return []render.Primitive{render.Badge(text, color, c.cfg.Width, c.theme)}
}
