package interaction

import (
	"testing"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

func makeBars(n int) []model.Bar {
	base := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{Timestamp: base.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: float64(10 * (i + 1))}
	}
	return bars
}

func geometry(bars []model.Bar) scale.Geometry {
	return scale.Layout(bars, 110, 100, scale.Padding{Left: 5, Right: 5}, 0.2)
}

func TestController_IdleHoveringIdle(t *testing.T) {
	bars := makeBars(11)
	g := geometry(bars)
	c := New()
	if c.Phase() != Idle {
		t.Fatal("expected idle initially")
	}

	st := c.Enter(55, 20, g)
	if c.Phase() != Hovering || !st.Visible {
		t.Fatalf("expected hovering after enter, got %s %+v", c.Phase(), st)
	}
	if st.NearestIndex != 5 {
		t.Errorf("expected nearest index 5, got %d", st.NearestIndex)
	}

	st = c.Move(14, 20, g)
	if st.NearestIndex != 1 {
		t.Errorf("expected nearest index 1, got %d", st.NearestIndex)
	}

	st = c.Leave()
	if c.Phase() != Idle || st.Visible {
		t.Fatalf("expected idle after leave, got %s %+v", c.Phase(), st)
	}
}

func TestController_MoveWhileIdleStartsHovering(t *testing.T) {
	g := geometry(makeBars(5))
	c := New()
	c.Move(30, 10, g)
	if c.Phase() != Hovering {
		t.Fatal("expected move to start hovering")
	}
}

func TestController_MoveOutsideActsAsLeave(t *testing.T) {
	g := geometry(makeBars(5))
	c := New()
	c.Enter(30, 10, g)
	c.Move(500, 10, g)
	if c.Phase() != Idle || c.State().Visible {
		t.Fatal("expected idle after moving outside the plot")
	}
}

func TestController_EmptySeriesStaysIdle(t *testing.T) {
	g := geometry(nil)
	c := New()
	c.Enter(30, 10, g)
	if c.Phase() != Idle {
		t.Fatal("expected idle over an empty series")
	}
}

func TestController_RebindClampsAfterShrink(t *testing.T) {
	bars := makeBars(11)
	c := New()
	c.Enter(104, 20, geometry(bars))
	if c.State().NearestIndex != 10 {
		t.Fatalf("expected index 10, got %d", c.State().NearestIndex)
	}
	st := c.Rebind(geometry(bars[:4]))
	if st.NearestIndex != 3 {
		t.Errorf("expected index clamped to 3, got %d", st.NearestIndex)
	}
}

func TestController_Tooltip(t *testing.T) {
	bars := makeBars(11)
	c := New()
	if _, ok := c.Tooltip(bars, model.Period1D); ok {
		t.Fatal("expected no tooltip while idle")
	}
	c.Enter(55, 20, geometry(bars))
	tip, ok := c.Tooltip(bars, model.Period1D)
	if !ok {
		t.Fatal("expected tooltip while hovering")
	}
	if tip.Close != 105 || tip.Volume != 60 || tip.Time != "09:35" {
		t.Errorf("unexpected tooltip: %+v", tip)
	}
	tip, _ = c.Tooltip(bars, model.Period1MO)
	if tip.Time != "2024-01-15" {
		t.Errorf("expected calendar date for multi-day period, got %q", tip.Time)
	}
}
