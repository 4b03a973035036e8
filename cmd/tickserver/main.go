// cmd/tickserver is a development tick feed. It broadcasts simulated ticks
// over WebSocket in the model.Tick shape the chart's WS live source reads:
//
//	{"symbol":"AAPL","price":185.52,"volume":17,"ts":"..."}
//
// Clients may pass ?symbol=AAPL to receive one symbol only.
//
// Config (env vars, .env honoured):
//
//	TICK_SERVER_ADDR  listen address (default ":9001")
//	TICK_SYMBOLS      comma-separated symbols (default "AAPL,MSFT")
//	TICK_INTERVAL_MS  broadcast interval in milliseconds (default 250)
//	TICK_SEED_DB      SQLite path; when set, history is seeded and closed
//	                  1m bars are recorded as the simulation runs
//	TICK_REDIS_ADDR   when set, ticks and quotes are also published to Redis
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/michalhajok/trackerF-sub001/internal/logger"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/redisfeed"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/sqlite"
	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// ─── Hub ──────────────────────────────────────────────────────────────────────

type subscriber struct {
	symbol string // empty receives every symbol
	ch     chan []byte
}

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]subscriber
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]subscriber)}
}

func (h *hub) register(conn *websocket.Conn, symbol string) chan []byte {
	sub := subscriber{symbol: strings.ToUpper(symbol), ch: make(chan []byte, 256)}
	h.mu.Lock()
	h.clients[conn] = sub
	h.mu.Unlock()
	return sub.ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if sub, ok := h.clients[conn]; ok {
		close(sub.ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(symbol string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.clients {
		if sub.symbol != "" && sub.symbol != symbol {
			continue
		}
		select {
		case sub.ch <- msg:
		default: // slow client, drop tick
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("upgrade failed", "error", err)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		slog.Info("client connected", "remote", r.RemoteAddr, "symbol", symbol)

		ch := h.register(conn, symbol)
		defer func() {
			h.unregister(conn)
			conn.Close()
			slog.Info("client disconnected", "remote", r.RemoteAddr)
		}()

		// Drain reads so close frames are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.unregister(conn)
					return
				}
			}
		}()

		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Tick generator ──────────────────────────────────────────────────────────

type sinks struct {
	redis  *redisfeed.Feed
	record chan<- sqlite.Record
	rec    *recorder
}

func runGenerator(ctx context.Context, h *hub, instruments []instrument, interval time.Duration, out sinks) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i := range instruments {
				t := nextTick(rng, &instruments[i], now)
				b, err := json.Marshal(t)
				if err != nil {
					continue
				}
				h.broadcast(t.Symbol, b)
				publish(ctx, out, instruments[i], t)
			}
		}
	}
}

func publish(ctx context.Context, out sinks, inst instrument, t model.Tick) {
	if out.redis != nil {
		if err := out.redis.Publish(ctx, t); err != nil {
			slog.Warn("redis publish failed", "symbol", t.Symbol, "error", err)
		}
		if err := out.redis.SetQuote(ctx, inst.quote()); err != nil {
			slog.Warn("redis quote failed", "symbol", t.Symbol, "error", err)
		}
	}
	if out.rec != nil {
		if bar, closed := out.rec.observe(t); closed {
			select {
			case out.record <- sqlite.Record{Symbol: t.Symbol, Interval: model.Interval1M, Bar: bar}:
			case <-ctx.Done():
			}
		}
	}
}

// seedHistory writes synthetic history ending now for every instrument and
// primes the recorder with the forming minute.
func seedHistory(w *sqlite.Writer, instruments []instrument, rec *recorder, now time.Time) error {
	rng := rand.New(rand.NewSource(now.UnixNano()))
	plan := []struct {
		iv model.Interval
		n  int
	}{
		{model.Interval1M, 5 * 24 * 60},
		{model.Interval1H, 365 * 24},
		{model.Interval1D, 5 * 365},
	}
	for _, inst := range instruments {
		for _, p := range plan {
			bars := history(rng, inst.Price, now, p.iv.Duration(), p.n)
			if err := w.InsertBars(inst.Symbol, p.iv, bars); err != nil {
				return fmt.Errorf("seed %s %s: %w", inst.Symbol, p.iv, err)
			}
			if p.iv == model.Interval1M {
				rec.seed(inst.Symbol, bars[len(bars)-1])
			}
		}
		if err := w.SaveQuote(inst.quote()); err != nil {
			return fmt.Errorf("seed quote %s: %w", inst.Symbol, err)
		}
		slog.Info("seeded history", "symbol", inst.Symbol)
	}
	return nil
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	_ = godotenv.Load()
	logger.Init("tickserver", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	interval := time.Duration(envIntOrDefault("TICK_INTERVAL_MS", 250)) * time.Millisecond
	instruments := parseInstruments(envOrDefault("TICK_SYMBOLS", "AAPL,MSFT"))
	if len(instruments) == 0 {
		slog.Error("no instruments configured via TICK_SYMBOLS")
		os.Exit(1)
	}
	slog.Info("starting tick server", "symbols", len(instruments), "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out sinks
	var writerDone chan struct{}
	if path := os.Getenv("TICK_SEED_DB"); path != "" {
		w, err := sqlite.NewWriter(sqlite.WriterConfig{DBPath: path})
		if err != nil {
			slog.Error("sqlite open failed", "path", path, "error", err)
			os.Exit(1)
		}
		defer w.Close()
		out.rec = newRecorder()
		if err := seedHistory(w, instruments, out.rec, time.Now()); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		recCh := make(chan sqlite.Record, 256)
		out.record = recCh
		writerDone = make(chan struct{})
		go func() {
			defer close(writerDone)
			w.Run(ctx, recCh)
		}()
	}
	if redisAddr := os.Getenv("TICK_REDIS_ADDR"); redisAddr != "" {
		feed, err := redisfeed.New(redisfeed.Config{Addr: redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		if err != nil {
			slog.Error("redis connect failed", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		defer feed.Close()
		out.redis = feed
	}

	h := newHub()
	go runGenerator(ctx, h, instruments, interval, out)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(h))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("listening", "addr", addr, "ws", "ws://localhost"+addr+"/ws")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	if writerDone != nil {
		<-writerDone
	}
	slog.Info("tick server stopped")
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
