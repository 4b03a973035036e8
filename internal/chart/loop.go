package chart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/logger"
	"github.com/michalhajok/trackerF-sub001/internal/metrics"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

// ErrStopped is returned when posting to a loop that is not running.
var ErrStopped = errors.New("chart loop stopped")

const (
	defaultFetchTimeout = 15 * time.Second
	eventBuffer         = 64
)

// LoopConfig wires a Loop to its collaborators. Live and Quotes are optional.
type LoopConfig struct {
	History model.HistoricalProvider
	Live    model.LiveProvider
	Quotes  model.QuoteProvider

	// OnFrame is called on the loop goroutine after every state change.
	OnFrame func(Frame)

	FetchTimeout time.Duration
	Metrics      *metrics.Metrics
}

// Loop owns a Chart and serialises every event into it on one goroutine.
// Fetches and quote lookups run on their own goroutines and report back
// through the loop; ticks and feed status are coalesced in a mailbox.
type Loop struct {
	chart *Chart
	cfg   LoopConfig

	events  chan func()
	results chan FetchResult
	ticks   *tickMailbox
	done    chan struct{}

	// Owned by the loop goroutine.
	ctx         context.Context
	cancelFetch context.CancelFunc
	unsubscribe func()
	subSymbol   string
}

// NewLoop creates a loop around c. Call Run to start it.
func NewLoop(c *Chart, cfg LoopConfig) *Loop {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Loop{
		chart:   c,
		cfg:     cfg,
		events:  make(chan func(), eventBuffer),
		results: make(chan FetchResult, 4),
		ticks:   newTickMailbox(),
		done:    make(chan struct{}),
	}
}

// Run loads the initial series, subscribes to live ticks and processes
// events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx
	defer close(l.done)
	defer l.teardown()

	l.fetch(l.chart.BeginFetch())
	l.resubscribe()
	l.emit()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-l.events:
			fn()
			l.emit()

		case res := <-l.results:
			if l.chart.CompleteFetch(res) {
				l.fetchQuote(res.Key.Symbol)
				l.emit()
			}

		case <-l.ticks.wake:
			changed := false
			if connected, ok := l.ticks.takeStatus(); ok && connected == l.chart.Offline() {
				l.chart.SetLiveConnected(connected)
				changed = true
			}
			for _, t := range l.ticks.drain() {
				if l.chart.ApplyTick(t).Changed() {
					changed = true
				}
			}
			if changed {
				l.emit()
			}
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) emit() {
	if l.cfg.OnFrame != nil {
		l.cfg.OnFrame(l.chart.Frame())
	}
}

func (l *Loop) teardown() {
	if l.cancelFetch != nil {
		l.cancelFetch()
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

// post queues fn for the loop goroutine.
func (l *Loop) post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// ── Fetch lifecycle ──

func (l *Loop) fetch(req FetchRequest) {
	if l.cancelFetch != nil {
		l.cancelFetch()
	}
	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.FetchTimeout)
	l.cancelFetch = cancel
	ctx = logger.WithRequest(ctx, req.Key.String(), req.ID)

	go func() {
		defer cancel()
		start := time.Now()
		bars, err := l.cfg.History.GetHistoricalBars(ctx, req.Key)
		if err != nil {
			slog.Debug("historical fetch returned error", append(logger.RequestAttrs(ctx), "error", err)...)
		}
		res := FetchResult{ID: req.ID, Key: req.Key, Bars: bars, Err: err, Elapsed: time.Since(start)}
		select {
		case l.results <- res:
		case <-l.done:
		}
	}()
}

func (l *Loop) fetchQuote(symbol string) {
	if l.cfg.Quotes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.FetchTimeout)
	go func() {
		defer cancel()
		q, err := l.cfg.Quotes.GetQuote(ctx, symbol)
		if err != nil {
			slog.Debug("quote lookup failed", "symbol", symbol, "error", err)
			return
		}
		l.post(func() { l.chart.SetQuote(q) })
	}()
}

// ── Live subscription ──

// resubscribe keeps the live subscription on the active symbol.
func (l *Loop) resubscribe() {
	want := ""
	if l.chart.cfg.RealTime && l.cfg.Live != nil {
		want = l.chart.Key().Symbol
	}
	if want == l.subSymbol {
		return
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.subSymbol = ""
	if want == "" {
		return
	}

	onTick := func(t model.Tick) {
		if l.ticks.put(t) {
			l.cfg.Metrics.IncCoalesced()
		}
	}
	onStatus := func(connected bool) {
		l.cfg.Metrics.SetLive(connected)
		l.ticks.putStatus(connected)
	}
	unsub, err := l.cfg.Live.Subscribe(l.ctx, want, onTick, onStatus)
	if err != nil {
		slog.Warn("live subscribe failed", "symbol", want, "error", err)
		l.chart.SetLiveConnected(false)
		return
	}
	l.unsubscribe = unsub
	l.subSymbol = want
}

// ── Host events ──

func (l *Loop) reselect(fn func() (FetchRequest, bool)) error {
	return l.post(func() {
		if req, ok := fn(); ok {
			l.fetch(req)
			l.resubscribe()
		}
	})
}

// SetSymbol switches symbol, refetching history.
func (l *Loop) SetSymbol(symbol string) error {
	return l.reselect(func() (FetchRequest, bool) { return l.chart.SetSymbol(symbol) })
}

// SetPeriod switches period, refetching history.
func (l *Loop) SetPeriod(p model.Period) error {
	return l.reselect(func() (FetchRequest, bool) { return l.chart.SetPeriod(p) })
}

// SetInterval switches interval, refetching history.
func (l *Loop) SetInterval(iv model.Interval) error {
	return l.reselect(func() (FetchRequest, bool) { return l.chart.SetInterval(iv) })
}

// Reload refetches the current key, e.g. after an error placeholder.
func (l *Loop) Reload() error {
	return l.post(func() { l.fetch(l.chart.BeginFetch()) })
}

// SetChartType switches the price style.
func (l *Loop) SetChartType(t render.ChartType) error {
	return l.post(func() { l.chart.SetChartType(t) })
}

// ToggleIndicator flips an indicator by name.
func (l *Loop) ToggleIndicator(name string) error {
	return l.post(func() { l.chart.ToggleIndicator(name) })
}

// SetShowIndicators toggles all overlays.
func (l *Loop) SetShowIndicators(show bool) error {
	return l.post(func() { l.chart.SetShowIndicators(show) })
}

// SetShowVolume toggles the volume strip.
func (l *Loop) SetShowVolume(show bool) error {
	return l.post(func() { l.chart.SetShowVolume(show) })
}

// SetRealTime toggles tick merging and the live subscription.
func (l *Loop) SetRealTime(on bool) error {
	return l.post(func() {
		l.chart.SetRealTime(on)
		l.resubscribe()
	})
}

// Resize sets the surface size.
func (l *Loop) Resize(width, height float64) error {
	return l.post(func() { l.chart.Resize(width, height) })
}

// PointerEnter forwards a pointer-enter event.
func (l *Loop) PointerEnter(x, y float64) error {
	return l.post(func() { l.chart.PointerEnter(x, y) })
}

// PointerMove forwards a pointer move.
func (l *Loop) PointerMove(x, y float64) error {
	return l.post(func() { l.chart.PointerMove(x, y) })
}

// PointerLeave forwards a pointer-leave event.
func (l *Loop) PointerLeave() error {
	return l.post(func() { l.chart.PointerLeave() })
}

// ToggleFullscreen forwards a fullscreen toggle to the host callback.
func (l *Loop) ToggleFullscreen() error {
	return l.post(func() { l.chart.ToggleFullscreen() })
}

// Snapshot returns the current frame, computed on the loop goroutine.
func (l *Loop) Snapshot(ctx context.Context) (Frame, error) {
	reply := make(chan Frame, 1)
	if err := l.post(func() { reply <- l.chart.Frame() }); err != nil {
		return Frame{}, err
	}
	select {
	case f := <-reply:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-l.done:
		return Frame{}, ErrStopped
	}
}
