// Package chart orchestrates the charting pipeline for one chart surface.
//
// A Chart owns every piece of mutable state (config, series, crosshair,
// fetch lifecycle) and applies events synchronously. It is not safe for
// concurrent use; Loop serialises events from providers, fetch goroutines
// and the host onto a single goroutine.
package chart

import (
	"log/slog"
	"strings"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/indicator"
	"github.com/michalhajok/trackerF-sub001/internal/interaction"
	"github.com/michalhajok/trackerF-sub001/internal/metrics"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
	"github.com/michalhajok/trackerF-sub001/internal/scale"
	"github.com/michalhajok/trackerF-sub001/internal/series"
)

// Status is the data state shown by a frame.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
)

// Config is the user-controlled chart configuration.
type Config struct {
	Key        model.SeriesKey  `json:"key"`
	ChartType  render.ChartType `json:"chart_type"`
	Indicators []indicator.Spec `json:"indicators"`
	ShowVolume bool             `json:"show_volume"`
	// ShowIndicators is the master switch for all indicator overlays.
	ShowIndicators bool    `json:"show_indicators"`
	RealTime       bool    `json:"real_time"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
}

// DefaultConfig returns the configuration a chart opens with for key.
func DefaultConfig(key model.SeriesKey) Config {
	return Config{
		Key:            key,
		ChartType:      render.ChartLine,
		Indicators:     indicator.DefaultSpecs(),
		ShowVolume:     true,
		ShowIndicators: true,
		RealTime:       true,
		Width:          800,
		Height:         450,
	}
}

// FetchRequest identifies one historical load. Only the most recently
// issued request is active.
type FetchRequest struct {
	ID  uint64          `json:"id"`
	Key model.SeriesKey `json:"key"`
}

// FetchResult is the outcome of a FetchRequest.
type FetchResult struct {
	ID      uint64
	Key     model.SeriesKey
	Bars    []model.Bar
	Err     error
	Elapsed time.Duration
}

// Chart is the orchestrator for one chart surface.
type Chart struct {
	cfg   Config
	theme render.Theme

	store *series.Store
	ctrl  *interaction.Controller

	nextID  uint64
	active  FetchRequest
	status  Status
	message string

	offline    bool
	quote      *model.Quote
	fullscreen bool

	onFullscreen func(bool)
	metrics      *metrics.Metrics

	// Cached pipeline output, valid while !dirty.
	dirty   bool
	geom    scale.Geometry
	results []indicator.Result
	base    []render.Layer
}

// New creates a chart in the loading state. m may be nil.
func New(cfg Config, th render.Theme, m *metrics.Metrics) *Chart {
	c := &Chart{
		cfg:     cfg,
		theme:   th.Normalize(),
		store:   series.New(),
		ctrl:    interaction.New(),
		status:  StatusLoading,
		metrics: m,
		dirty:   true,
	}
	c.store.Reset(cfg.Key)
	c.store.OnStaleTick = func(t model.Tick) {
		slog.Debug("stale tick dropped", "key", c.cfg.Key.String(), "tick_ts", t.Timestamp)
	}
	c.store.OnNewBar = func(b model.Bar) {
		slog.Debug("bar opened", "key", c.cfg.Key.String(), "ts", b.Timestamp, "open", b.Open)
	}
	return c
}

// Config returns a copy of the current configuration.
func (c *Chart) Config() Config {
	cfg := c.cfg
	cfg.Indicators = append([]indicator.Spec(nil), c.cfg.Indicators...)
	return cfg
}

// Key returns the active series key.
func (c *Chart) Key() model.SeriesKey { return c.cfg.Key }

// Status returns the data state.
func (c *Chart) Status() Status { return c.status }

// Active returns the in-flight or last completed fetch request.
func (c *Chart) Active() FetchRequest { return c.active }

// Bars returns a copy of the loaded series.
func (c *Chart) Bars() []model.Bar { return c.store.Snapshot() }

// Theme returns the render theme.
func (c *Chart) Theme() render.Theme { return c.theme }

// SetFullscreenHandler installs the host callback for ToggleFullscreen.
func (c *Chart) SetFullscreenHandler(fn func(fullscreen bool)) { c.onFullscreen = fn }

// ── Data selection (refetch) ──

// SetSymbol switches to another symbol. It returns the new fetch request
// and true when the key changed.
func (c *Chart) SetSymbol(symbol string) (FetchRequest, bool) {
	key := c.cfg.Key
	key.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return c.selectKey(key)
}

// SetPeriod switches the lookback period.
func (c *Chart) SetPeriod(p model.Period) (FetchRequest, bool) {
	key := c.cfg.Key
	key.Period = p
	return c.selectKey(key)
}

// SetInterval switches the bar interval.
func (c *Chart) SetInterval(iv model.Interval) (FetchRequest, bool) {
	key := c.cfg.Key
	key.Interval = iv
	return c.selectKey(key)
}

func (c *Chart) selectKey(key model.SeriesKey) (FetchRequest, bool) {
	if err := key.Validate(); err != nil {
		slog.Warn("rejected series key", "key", key.String(), "error", err)
		return c.active, false
	}
	if key == c.cfg.Key {
		return c.active, false
	}
	if key.Symbol != c.cfg.Key.Symbol {
		c.quote = nil
	}
	c.cfg.Key = key
	return c.BeginFetch(), true
}

// BeginFetch issues a new request for the current key and drops the held
// series. Any earlier request becomes stale.
func (c *Chart) BeginFetch() FetchRequest {
	c.nextID++
	c.active = FetchRequest{ID: c.nextID, Key: c.cfg.Key}
	c.store.Reset(c.cfg.Key)
	c.ctrl.Leave()
	c.status = StatusLoading
	c.message = "Loading " + c.cfg.Key.Symbol + "…"
	c.dirty = true
	return c.active
}

// CompleteFetch installs a fetch result. Results for a request other than
// the active one are discarded and false is returned.
func (c *Chart) CompleteFetch(res FetchResult) bool {
	if res.ID != c.active.ID || res.Key != c.active.Key || c.status != StatusLoading {
		slog.Debug("discarding stale fetch result",
			"key", res.Key.String(), "req_id", res.ID, "active_req_id", c.active.ID)
		c.metrics.ObserveFetch("stale", 0)
		return false
	}
	key := res.Key

	switch {
	case res.Err != nil:
		c.status = StatusError
		c.message = errorMessage(key, res.Err)
		slog.Warn("historical fetch failed", "key", key.String(), "req_id", res.ID,
			"kind", model.FetchErrorKind(res.Err), "error", res.Err)
		c.metrics.ObserveFetch("error", res.Elapsed)

	case len(res.Bars) == 0:
		c.store.Replace(key, nil)
		c.status = StatusEmpty
		c.message = "No data for " + key.Symbol
		c.metrics.ObserveFetch("empty", res.Elapsed)

	default:
		if err := model.ValidateSeries(res.Bars); err != nil {
			c.status = StatusError
			c.message = "Invalid data for " + key.Symbol
			slog.Warn("historical series rejected", "key", key.String(), "error", err)
			c.metrics.ObserveFetch("error", res.Elapsed)
			break
		}
		c.store.Replace(key, res.Bars)
		c.status = StatusReady
		c.message = ""
		c.metrics.ObserveFetch("ok", res.Elapsed)
	}
	c.dirty = true
	return true
}

func errorMessage(key model.SeriesKey, err error) string {
	switch model.FetchErrorKind(err) {
	case "not_found":
		return "No history found for " + key.Symbol
	case "rate_limited":
		return "Rate limited, try again shortly"
	case "network":
		return "Network error loading " + key.Symbol
	default:
		return "Failed to load " + key.Symbol
	}
}

// ── Real-time ──

// ApplyTick merges a live tick into the series.
func (c *Chart) ApplyTick(t model.Tick) series.MergeResult {
	if !c.cfg.RealTime || c.status != StatusReady {
		c.metrics.ObserveTick(series.Ignored.String())
		return series.Ignored
	}
	r := c.store.Merge(t)
	c.metrics.ObserveTick(r.String())
	if r.Changed() {
		c.dirty = true
	}
	return r
}

// SetLiveConnected toggles the passive offline indicator. The held data is
// kept either way.
func (c *Chart) SetLiveConnected(connected bool) {
	c.offline = !connected
}

// Offline reports whether the live feed is marked disconnected.
func (c *Chart) Offline() bool { return c.offline }

// SetQuote stores the header quote. Quotes for another symbol are ignored.
func (c *Chart) SetQuote(q model.Quote) bool {
	if q.Symbol != c.cfg.Key.Symbol {
		return false
	}
	c.quote = &q
	return true
}

// ── Presentation (re-render only) ──

// SetChartType switches the price style.
func (c *Chart) SetChartType(t render.ChartType) {
	if t == c.cfg.ChartType {
		return
	}
	c.cfg.ChartType = t
	c.dirty = true
}

// ToggleIndicator flips the named indicator and reports its new state. An
// unknown name returns false and changes nothing.
func (c *Chart) ToggleIndicator(name string) (enabled, ok bool) {
	for i := range c.cfg.Indicators {
		if c.cfg.Indicators[i].Name() == name {
			c.cfg.Indicators[i].Enabled = !c.cfg.Indicators[i].Enabled
			c.dirty = true
			return c.cfg.Indicators[i].Enabled, true
		}
	}
	return false, false
}

// SetShowIndicators toggles all indicator overlays at once.
func (c *Chart) SetShowIndicators(show bool) {
	if show != c.cfg.ShowIndicators {
		c.cfg.ShowIndicators = show
		c.dirty = true
	}
}

// SetShowVolume toggles the volume strip.
func (c *Chart) SetShowVolume(show bool) {
	if show != c.cfg.ShowVolume {
		c.cfg.ShowVolume = show
		c.dirty = true
	}
}

// SetRealTime toggles tick merging. The caller manages the subscription.
func (c *Chart) SetRealTime(on bool) { c.cfg.RealTime = on }

// Resize sets the surface size. Non-positive sizes are ignored.
func (c *Chart) Resize(width, height float64) {
	if width <= 0 || height <= 0 || (width == c.cfg.Width && height == c.cfg.Height) {
		return
	}
	c.cfg.Width, c.cfg.Height = width, height
	c.dirty = true
}

// ToggleFullscreen flips the fullscreen flag and hands it to the host.
func (c *Chart) ToggleFullscreen() bool {
	c.fullscreen = !c.fullscreen
	if c.onFullscreen != nil {
		c.onFullscreen(c.fullscreen)
	}
	return c.fullscreen
}

// ── Pointer ──

// PointerEnter handles the pointer entering the surface.
func (c *Chart) PointerEnter(x, y float64) interaction.CrosshairState {
	if c.status != StatusReady {
		return c.ctrl.Leave()
	}
	return c.ctrl.Enter(x, y, c.geometry())
}

// PointerMove handles a pointer move.
func (c *Chart) PointerMove(x, y float64) interaction.CrosshairState {
	if c.status != StatusReady {
		return c.ctrl.Leave()
	}
	return c.ctrl.Move(x, y, c.geometry())
}

// PointerLeave handles the pointer leaving the surface.
func (c *Chart) PointerLeave() interaction.CrosshairState {
	return c.ctrl.Leave()
}
