package chart

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
	"github.com/michalhajok/trackerF-sub001/internal/series"
)

var (
	t0      = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	aaplKey = model.SeriesKey{Symbol: "AAPL", Period: model.Period1D, Interval: model.Interval1M}
)

func minuteBars(n int, base float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := base + float64(i%7) - 3
		bars[i] = model.Bar{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    float64(1000 + 10*i),
		}
	}
	return bars
}

func readyChart(t *testing.T, n int) *Chart {
	t.Helper()
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	req := c.BeginFetch()
	require.True(t, c.CompleteFetch(FetchResult{ID: req.ID, Key: req.Key, Bars: minuteBars(n, 100)}))
	require.Equal(t, StatusReady, c.Status())
	return c
}

func layerNames(f Frame) []render.LayerName {
	names := make([]render.LayerName, len(f.Layers))
	for i, l := range f.Layers {
		names[i] = l.Name
	}
	return names
}

func texts(ps []render.Primitive) string {
	var b strings.Builder
	for _, p := range ps {
		if p.Kind == render.KindText {
			b.WriteString(p.Text)
			b.WriteByte('|')
		}
	}
	return b.String()
}

func TestStaleResponseGuard(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	first := c.BeginFetch()

	second, ok := c.SetSymbol("MSFT")
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)

	// The AAPL response arrives late and must not be installed.
	assert.False(t, c.CompleteFetch(FetchResult{ID: first.ID, Key: first.Key, Bars: minuteBars(10, 180)}))
	assert.Equal(t, StatusLoading, c.Status())
	assert.Empty(t, c.Bars())

	msft := minuteBars(5, 400)
	assert.True(t, c.CompleteFetch(FetchResult{ID: second.ID, Key: second.Key, Bars: msft}))
	assert.Equal(t, StatusReady, c.Status())
	assert.Equal(t, msft, c.Bars())
	assert.Equal(t, "MSFT", c.Key().Symbol)
}

func TestStaleResponseGuard_SameKeyOlderRequest(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	first := c.BeginFetch()

	_, ok := c.SetPeriod(model.Period5D)
	require.True(t, ok)
	third, ok := c.SetPeriod(model.Period1D)
	require.True(t, ok)
	require.Equal(t, first.Key, third.Key)

	assert.False(t, c.CompleteFetch(FetchResult{ID: first.ID, Key: first.Key, Bars: minuteBars(3, 100)}))
	assert.True(t, c.CompleteFetch(FetchResult{ID: third.ID, Key: third.Key, Bars: minuteBars(3, 100)}))
	// A duplicate delivery of a completed request is also stale.
	assert.False(t, c.CompleteFetch(FetchResult{ID: third.ID, Key: third.Key, Bars: minuteBars(4, 100)}))
	assert.Len(t, c.Bars(), 3)
}

func TestSelect_UnchangedOrInvalidKeyDoesNotRefetch(t *testing.T) {
	c := readyChart(t, 10)
	before := c.Active()

	_, ok := c.SetSymbol("AAPL")
	assert.False(t, ok)
	_, ok = c.SetInterval("7m")
	assert.False(t, ok)
	assert.Equal(t, before, c.Active())
	assert.Equal(t, StatusReady, c.Status())
}

func TestCompleteFetch_ErrorShortCircuits(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	req := c.BeginFetch()
	err := fmt.Errorf("sqlite: %w", model.ErrRateLimited)
	require.True(t, c.CompleteFetch(FetchResult{ID: req.ID, Key: req.Key, Err: err}))

	f := c.Frame()
	assert.Equal(t, StatusError, f.Status)
	assert.Equal(t, []render.LayerName{render.LayerStatus}, layerNames(f))
	assert.Contains(t, texts(f.Layers[0].Primitives), "Rate limited")
	assert.Nil(t, f.Tooltip)
}

func TestCompleteFetch_Empty(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	req := c.BeginFetch()
	require.True(t, c.CompleteFetch(FetchResult{ID: req.ID, Key: req.Key}))

	f := c.Frame()
	assert.Equal(t, StatusEmpty, f.Status)
	assert.Contains(t, texts(f.Layers[0].Primitives), "No data for AAPL")
}

func TestCompleteFetch_RejectsUnorderedSeries(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	req := c.BeginFetch()
	bars := minuteBars(3, 100)
	bars[2].Timestamp = bars[0].Timestamp
	require.True(t, c.CompleteFetch(FetchResult{ID: req.ID, Key: req.Key, Bars: bars}))
	assert.Equal(t, StatusError, c.Status())
}

func TestLoadingFrameIsPlaceholder(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	c.BeginFetch()
	f := c.Frame()
	assert.Equal(t, StatusLoading, f.Status)
	assert.Contains(t, texts(f.Layers[0].Primitives), "Loading AAPL")
}

func TestFrame_ZOrder(t *testing.T) {
	f := readyChart(t, 30).Frame()
	assert.Equal(t, []render.LayerName{
		render.LayerPrice, render.LayerOverlay, render.LayerVolume,
		render.LayerAxis, render.LayerCrosshair, render.LayerStatus,
	}, layerNames(f))

	price, _ := f.Layer(render.LayerPrice)
	require.Len(t, price.Primitives, 1)
	assert.Len(t, price.Primitives[0].Points, 30)
	overlay, _ := f.Layer(render.LayerOverlay)
	assert.NotEmpty(t, overlay.Primitives)
	volume, _ := f.Layer(render.LayerVolume)
	assert.Len(t, volume.Primitives, 30)
}

func TestFrame_CachedUntilDirty(t *testing.T) {
	c := readyChart(t, 30)
	f1 := c.Frame()
	f2 := c.Frame()
	assert.True(t, &f1.Layers[0].Primitives[0] == &f2.Layers[0].Primitives[0], "price layer recomputed without a change")

	c.SetChartType(render.ChartCandlestick)
	f3 := c.Frame()
	price, _ := f3.Layer(render.LayerPrice)
	assert.Len(t, price.Primitives, 60)
}

func TestApplyTick(t *testing.T) {
	c := readyChart(t, 30)
	last := c.Bars()[29]

	r := c.ApplyTick(model.Tick{Symbol: "AAPL", Price: last.High + 5, Volume: 7, Timestamp: last.Timestamp.Add(30 * time.Second)})
	assert.Equal(t, series.Updated, r)
	bars := c.Bars()
	require.Len(t, bars, 30)
	assert.Equal(t, last.High+5, bars[29].High)
	assert.Equal(t, last.Volume+7, bars[29].Volume)

	r = c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 101, Volume: 3, Timestamp: last.Timestamp.Add(75 * time.Second)})
	assert.Equal(t, series.Appended, r)
	require.Len(t, c.Bars(), 31)

	price, _ := c.Frame().Layer(render.LayerPrice)
	assert.Len(t, price.Primitives[0].Points, 31)

	assert.Equal(t, series.Stale, c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 99, Timestamp: t0}))
	assert.Equal(t, series.Ignored, c.ApplyTick(model.Tick{Symbol: "MSFT", Price: 99, Timestamp: last.Timestamp.Add(2 * time.Minute)}))
}

func TestApplyTick_LogsStaleAndOpenedBars(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	c := readyChart(t, 5)
	last := c.Bars()[4]
	require.Equal(t, series.Appended, c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 101, Timestamp: last.Timestamp.Add(time.Minute)}))
	require.Equal(t, series.Stale, c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 99, Timestamp: t0}))

	out := buf.String()
	assert.Contains(t, out, `msg="bar opened" key=AAPL:1d:1m`)
	assert.Contains(t, out, `msg="stale tick dropped" key=AAPL:1d:1m`)
}

func TestApplyTick_RealTimeOffOrNotReady(t *testing.T) {
	c := readyChart(t, 5)
	c.SetRealTime(false)
	last := c.Bars()[4]
	assert.Equal(t, series.Ignored, c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 1, Timestamp: last.Timestamp}))

	c.SetRealTime(true)
	c.BeginFetch()
	assert.Equal(t, series.Ignored, c.ApplyTick(model.Tick{Symbol: "AAPL", Price: 1, Timestamp: last.Timestamp}))
}

func TestToggles(t *testing.T) {
	c := readyChart(t, 30)

	enabled, ok := c.ToggleIndicator("SMA_20")
	require.True(t, ok)
	assert.False(t, enabled)
	overlay, _ := c.Frame().Layer(render.LayerOverlay)
	assert.Empty(t, overlay.Primitives)

	_, ok = c.ToggleIndicator("MACD_12")
	assert.False(t, ok)

	c.ToggleIndicator("SMA_20")
	c.SetShowIndicators(false)
	f := c.Frame()
	overlay, _ = f.Layer(render.LayerOverlay)
	assert.Empty(t, overlay.Primitives)
	assert.Empty(t, f.Indicators)

	c.SetShowVolume(false)
	volume, _ := c.Frame().Layer(render.LayerVolume)
	assert.Empty(t, volume.Primitives)
}

func TestIndicatorValues(t *testing.T) {
	c := readyChart(t, 30)
	f := c.Frame()
	require.Len(t, f.Indicators, 1)
	assert.Equal(t, "SMA_20", f.Indicators[0].Name)
	assert.True(t, f.Indicators[0].Available)

	// Not enough bars: the overlay is omitted and the value unavailable.
	short := readyChart(t, 10)
	f = short.Frame()
	require.Len(t, f.Indicators, 1)
	assert.False(t, f.Indicators[0].Available)
	overlay, _ := f.Layer(render.LayerOverlay)
	assert.Empty(t, overlay.Primitives)
}

func TestPointer(t *testing.T) {
	c := readyChart(t, 30)
	g := c.geometry()
	plot := g.Price.Plot()

	st := c.PointerEnter(g.Price.ScaleX(12)+0.4, plot.Y+10)
	require.True(t, st.Visible)
	assert.Equal(t, 12, st.NearestIndex)

	f := c.Frame()
	require.NotNil(t, f.Tooltip)
	assert.Equal(t, c.Bars()[12].Close, f.Tooltip.Close)
	assert.Equal(t, "14:42", f.Tooltip.Time)
	cross, _ := f.Layer(render.LayerCrosshair)
	assert.NotEmpty(t, cross.Primitives)

	st = c.PointerMove(plot.X-5, plot.Y+10)
	assert.False(t, st.Visible)

	c.PointerMove(g.Price.ScaleX(3), plot.Y+10)
	c.PointerLeave()
	f = c.Frame()
	assert.Nil(t, f.Tooltip)
	cross, _ = f.Layer(render.LayerCrosshair)
	assert.Empty(t, cross.Primitives)
}

func TestPointer_IgnoredWhileLoading(t *testing.T) {
	c := New(DefaultConfig(aaplKey), render.DefaultTheme(), nil)
	c.BeginFetch()
	assert.False(t, c.PointerEnter(100, 100).Visible)
}

func TestPointer_RebindAfterResize(t *testing.T) {
	c := readyChart(t, 30)
	g := c.geometry()
	plot := g.Price.Plot()
	c.PointerMove(plot.Right()-1, plot.Y+5)

	c.Resize(200, 150)
	f := c.Frame()
	// The old pointer position is now outside the smaller plot.
	assert.False(t, f.Crosshair.Visible)
}

func TestQuoteGuardAndBadges(t *testing.T) {
	c := readyChart(t, 5)
	assert.False(t, c.SetQuote(model.Quote{Symbol: "MSFT", CurrentPrice: 400}))
	assert.True(t, c.SetQuote(model.Quote{Symbol: "AAPL", CurrentPrice: 187.2, ChangePercent: -1.25}))

	f := c.Frame()
	require.NotNil(t, f.Quote)
	status, _ := f.Layer(render.LayerStatus)
	assert.Contains(t, texts(status.Primitives), "AAPL 187.2 -1.25%")

	c.SetLiveConnected(false)
	f = c.Frame()
	assert.True(t, f.Offline)
	status, _ = f.Layer(render.LayerStatus)
	assert.Contains(t, texts(status.Primitives), "OFFLINE")
	assert.Len(t, c.Bars(), 5, "data kept while offline")

	// Switching symbol drops the old quote.
	c.SetSymbol("MSFT")
	assert.Nil(t, c.Frame().Quote)
}

func TestToggleFullscreen(t *testing.T) {
	c := readyChart(t, 5)
	var got []bool
	c.SetFullscreenHandler(func(on bool) { got = append(got, on) })
	assert.True(t, c.ToggleFullscreen())
	assert.False(t, c.ToggleFullscreen())
	assert.Equal(t, []bool{true, false}, got)
}

func TestSafeLayerRecoversPanic(t *testing.T) {
	c := readyChart(t, 5)
	out := c.safeLayer(render.LayerOverlay, func() []render.Primitive {
		panic(errors.New("boom"))
	})
	assert.Nil(t, out)
}

func TestResizeIgnoresNonPositive(t *testing.T) {
	c := readyChart(t, 5)
	c.Resize(0, 300)
	cfg := c.Config()
	assert.Equal(t, 800.0, cfg.Width)
	assert.Equal(t, 450.0, cfg.Height)
}
