// Package interaction turns pointer events into crosshair state.
//
// The controller has two phases. Idle: the pointer is outside the chart.
// Hovering: the pointer is over a plot region and snapped to a bar index.
// Every move recomputes the nearest index synchronously.
package interaction

import (
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// Phase is the controller state.
type Phase int

const (
	Idle Phase = iota
	Hovering
)

func (p Phase) String() string {
	if p == Hovering {
		return "hovering"
	}
	return "idle"
}

// CrosshairState is the ephemeral pointer state owned by the controller.
type CrosshairState struct {
	PointerX     float64 `json:"pointer_x"`
	PointerY     float64 `json:"pointer_y"`
	NearestIndex int     `json:"nearest_index"`
	Visible      bool    `json:"visible"`
}

// Tooltip is the data shown next to the crosshair.
type Tooltip struct {
	Time      string    `json:"time"`
	Timestamp time.Time `json:"ts"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Controller is the crosshair state machine. Not safe for concurrent use;
// the chart event loop owns it.
type Controller struct {
	phase Phase
	state CrosshairState
}

// New returns an idle controller.
func New() *Controller {
	return &Controller{}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// State returns the current crosshair state.
func (c *Controller) State() CrosshairState { return c.state }

// Enter handles the pointer entering the surface.
func (c *Controller) Enter(x, y float64, g scale.Geometry) CrosshairState {
	return c.Move(x, y, g)
}

// Move handles a pointer move. A move outside the plotted regions, or over
// an empty series, behaves like Leave.
func (c *Controller) Move(x, y float64, g scale.Geometry) CrosshairState {
	if g.Price.N == 0 || !g.Hit(x, y) {
		return c.Leave()
	}
	c.phase = Hovering
	c.state = CrosshairState{
		PointerX:     x,
		PointerY:     y,
		NearestIndex: g.Price.UnscaleX(x),
		Visible:      true,
	}
	return c.state
}

// Leave handles the pointer leaving the surface.
func (c *Controller) Leave() CrosshairState {
	c.phase = Idle
	c.state = CrosshairState{}
	return c.state
}

// Rebind re-snaps the last pointer position after the series or viewport
// changed, keeping NearestIndex inside [0, n-1].
func (c *Controller) Rebind(g scale.Geometry) CrosshairState {
	if c.phase != Hovering {
		return c.state
	}
	return c.Move(c.state.PointerX, c.state.PointerY, g)
}

// Tooltip returns the tooltip content for the hovered bar.
func (c *Controller) Tooltip(bars []model.Bar, period model.Period) (Tooltip, bool) {
	if c.phase != Hovering || c.state.NearestIndex < 0 || c.state.NearestIndex >= len(bars) {
		return Tooltip{}, false
	}
	b := bars[c.state.NearestIndex]
	return Tooltip{
		Time:      period.TooltipLabel(b.Timestamp),
		Timestamp: b.Timestamp,
		Close:     b.Close,
		Volume:    b.Volume,
	}, true
}
