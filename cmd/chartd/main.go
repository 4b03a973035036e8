// cmd/chartd serves an interactive price chart to browser hosts.
//
// History is read from SQLite; real-time ticks come from Redis Pub/Sub or
// a WebSocket tick feed (LIVE_SOURCE). Frames stream over /ws, snapshots
// are served from /api/snapshot and Prometheus metrics from METRICS_ADDR.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/michalhajok/trackerF-sub001/config"
	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/logger"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/guard"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/redisfeed"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/sqlite"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/wsfeed"
	"github.com/michalhajok/trackerF-sub001/internal/metrics"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/surface"
)

func main() {
	cfg := config.Load()
	logger.Init("chartd", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting chartd",
		"http_addr", cfg.HTTPAddr,
		"live_source", cfg.LiveSource,
		"key", cfg.DefaultKey().String(),
	)

	theme, err := cfg.Theme()
	if err != nil {
		slog.Warn("style file rejected, using default theme", "path", cfg.StyleFile, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus(cfg.LiveSource)

	store, err := sqlite.NewProvider(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite open failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	health.CheckSQLite(ctx, store.DB())

	var (
		live   model.LiveProvider
		quotes model.QuoteProvider = store
		rdb    *goredis.Client
	)
	switch cfg.LiveSource {
	case config.LiveRedis:
		feed, err := redisfeed.New(redisfeed.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			slog.Error("redis connect failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer feed.Close()
		live, quotes, rdb = feed, feed, feed.Client()
		health.SetRedisConnected(true)
	case config.LiveWS:
		feed, err := wsfeed.New(wsfeed.Config{URL: cfg.TickWSURL})
		if err != nil {
			slog.Error("tick feed config invalid", "url", cfg.TickWSURL, "error", err)
			os.Exit(1)
		}
		feed.OnReconnect = m.IncReconnect
		live = feed
	}
	if live != nil {
		live = &observedFeed{LiveProvider: live, health: health}
	}
	history := guard.History{Provider: store, Breaker: newBreaker("history")}
	quotes = guard.Quotes{Provider: quotes, Breaker: newBreaker("quotes")}

	chartCfg := chart.DefaultConfig(cfg.DefaultKey())
	chartCfg.Indicators = cfg.Indicators()
	chartCfg.RealTime = live != nil
	c := chart.New(chartCfg, theme, m)
	c.SetFullscreenHandler(func(fullscreen bool) {
		slog.Debug("fullscreen toggled", "fullscreen", fullscreen)
	})

	var hub *surface.Hub
	loop := chart.NewLoop(c, chart.LoopConfig{
		History: history,
		Live:    live,
		Quotes:  quotes,
		Metrics: m,
		OnFrame: func(f chart.Frame) {
			health.SetActiveKey(f.Key)
			hub.Broadcast(f)
		},
	})
	hub = surface.NewHub(loop, m)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	health.StartLivenessChecker(ctx, rdb, store.DB(), 10*time.Second)

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	mux := http.NewServeMux()
	surface.RegisterRoutes(mux, hub, theme.Background)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		slog.Info("surface listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-loopErr:
		slog.Error("chart loop exited", "error", err)
		stop()
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	hub.Close()
	metricsSrv.Stop(shutdownCtx)
	<-loop.Done()
	slog.Info("chartd stopped")
}

// newBreaker trips after five consecutive transport failures and probes
// again after 10s.
func newBreaker(name string) *guard.Breaker {
	b := guard.NewBreaker(5, 10*time.Second)
	b.OnStateChange = func(from, to guard.State) {
		slog.Warn("circuit breaker state change", "source", name, "from", from.String(), "to", to.String())
	}
	return b
}

// observedFeed records tick arrival and connectivity on the health status.
type observedFeed struct {
	model.LiveProvider
	health *metrics.HealthStatus
}

func (o *observedFeed) Subscribe(ctx context.Context, symbol string, onTick model.TickHandler, onStatus model.StatusHandler) (func(), error) {
	return o.LiveProvider.Subscribe(ctx, symbol,
		func(t model.Tick) {
			o.health.SetLastTickTime(t.Timestamp)
			onTick(t)
		},
		func(connected bool) {
			o.health.SetLiveConnected(connected)
			onStatus(connected)
		},
	)
}
