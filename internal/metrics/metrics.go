package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the chart engine.
// All Observe/Inc helpers are safe on a nil *Metrics.
type Metrics struct {
	FramesTotal prometheus.Counter
	RenderDur   prometheus.Histogram
	LayerPanics *prometheus.CounterVec // labels: layer

	// Historical fetch lifecycle
	FetchesTotal *prometheus.CounterVec // labels: result=ok|empty|error|stale
	FetchDur     prometheus.Histogram

	// Real-time feed
	TicksTotal     *prometheus.CounterVec // labels: result=updated|appended|stale|ignored
	TicksCoalesced prometheus.Counter
	FeedReconnects prometheus.Counter
	LiveConnected  prometheus.Gauge

	// Storage
	SQLiteCommitDur prometheus.Histogram

	// Surface
	SurfaceClients prometheus.Gauge
	ExportsTotal   *prometheus.CounterVec // labels: format=png|svg
}

// NewMetrics registers and returns all Prometheus metrics on reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_frames_total",
			Help: "Total frames produced by the render pipeline",
		}),
		RenderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_render_duration_seconds",
			Help:    "Full pipeline latency per frame (indicators, scale, layers)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		LayerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_layer_panics_total",
			Help: "Render layers that panicked and were dropped from the frame",
		}, []string{"layer"}),

		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_fetches_total",
			Help: "Historical fetch completions by outcome",
		}, []string{"result"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_fetch_duration_seconds",
			Help:    "Historical provider latency",
			Buckets: prometheus.DefBuckets,
		}),

		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_ticks_total",
			Help: "Ticks applied to the series store by merge result",
		}, []string{"result"}),
		TicksCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_ticks_coalesced_total",
			Help: "Ticks overwritten in the mailbox before the loop consumed them",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_feed_reconnects_total",
			Help: "Total live feed reconnection attempts",
		}),
		LiveConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chart_live_connected",
			Help: "Live feed connection state (0=offline, 1=connected)",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_sqlite_commit_duration_seconds",
			Help:    "SQLite bar batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		SurfaceClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chart_surface_clients",
			Help: "Connected WebSocket surface clients",
		}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_exports_total",
			Help: "Frames exported as images",
		}, []string{"format"}),
	}

	reg.MustRegister(
		m.FramesTotal,
		m.RenderDur,
		m.LayerPanics,
		m.FetchesTotal,
		m.FetchDur,
		m.TicksTotal,
		m.TicksCoalesced,
		m.FeedReconnects,
		m.LiveConnected,
		m.SQLiteCommitDur,
		m.SurfaceClients,
		m.ExportsTotal,
	)

	return m
}

// ObserveFrame records one pipeline run.
func (m *Metrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.FramesTotal.Inc()
	m.RenderDur.Observe(d.Seconds())
}

// ObserveLayerPanic records a recovered layer.
func (m *Metrics) ObserveLayerPanic(layer string) {
	if m == nil {
		return
	}
	m.LayerPanics.WithLabelValues(layer).Inc()
}

// ObserveFetch records a fetch outcome. d is zero for stale results whose
// latency is not attributed.
func (m *Metrics) ObserveFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
	if d > 0 {
		m.FetchDur.Observe(d.Seconds())
	}
}

// ObserveTick records a tick merge result.
func (m *Metrics) ObserveTick(result string) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(result).Inc()
}

// IncCoalesced records a tick overwritten in the mailbox.
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.TicksCoalesced.Inc()
}

// IncReconnect records a live feed reconnect attempt.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.FeedReconnects.Inc()
}

// SetLive records the live feed connection state.
func (m *Metrics) SetLive(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.LiveConnected.Set(1)
	} else {
		m.LiveConnected.Set(0)
	}
}

// ObserveCommit records one SQLite batch commit.
func (m *Metrics) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.SQLiteCommitDur.Observe(d.Seconds())
}

// AddClients adjusts the surface client gauge.
func (m *Metrics) AddClients(delta float64) {
	if m == nil {
		return
	}
	m.SurfaceClients.Add(delta)
}

// ObserveExport records an image export.
func (m *Metrics) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(format).Inc()
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	LiveConnected  bool      `json:"live_connected"`
	LiveSource     string    `json:"live_source"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	ActiveKey      string    `json:"active_key"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status for the given live
// source ("redis", "ws" or "none").
func NewHealthStatus(liveSource string) *HealthStatus {
	return &HealthStatus{
		LiveSource: liveSource,
		StartedAt:  time.Now(),
	}
}

func (h *HealthStatus) SetLiveConnected(v bool) {
	h.mu.Lock()
	h.LiveConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetActiveKey(key string) {
	h.mu.Lock()
	h.ActiveKey = key
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either client may be
// nil when that dependency is not configured.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. The historical store is required;
// a lost live feed only degrades the service since charts keep their last
// data.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	liveDown := h.LiveSource != "none" && !h.LiveConnected
	if h.LiveSource == "redis" && !h.RedisConnected {
		liveDown = true
	}
	if liveDown {
		overallStatus = "degraded"
	}
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LiveSource      string  `json:"live_source"`
		LiveConnected   bool    `json:"live_connected"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		ActiveKey       string  `json:"active_key"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LiveSource:      h.LiveSource,
		LiveConnected:   h.LiveConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		ActiveKey:       h.ActiveKey,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
