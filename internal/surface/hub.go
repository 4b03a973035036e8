// Package surface exposes a chart loop to browser hosts over WebSocket.
// Frames are fanned out to every connected client and client input is
// forwarded to the loop as pointer and control events.
package surface

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/metrics"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

// Controller is the subset of chart.Loop the surface drives.
type Controller interface {
	SetSymbol(symbol string) error
	SetPeriod(p model.Period) error
	SetInterval(iv model.Interval) error
	Reload() error
	SetChartType(t render.ChartType) error
	ToggleIndicator(name string) error
	SetShowIndicators(show bool) error
	SetShowVolume(show bool) error
	SetRealTime(on bool) error
	Resize(width, height float64) error
	PointerEnter(x, y float64) error
	PointerMove(x, y float64) error
	PointerLeave() error
	ToggleFullscreen() error
	Snapshot(ctx context.Context) (chart.Frame, error)
}

const sendBuffer = 16

// Hub tracks connected clients and broadcasts frames to them.
type Hub struct {
	ctrl    Controller
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  []byte
	seq     int64
}

// NewHub creates a hub that forwards client input to ctrl.
func NewHub(ctrl Controller, m *metrics.Metrics) *Hub {
	return &Hub{
		ctrl:    ctrl,
		metrics: m,
		clients: make(map[*Client]bool),
	}
}

// Broadcast sends f to every client. Slow clients drop frames rather than
// block the caller; the next frame supersedes the dropped one.
func (h *Hub) Broadcast(f chart.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("frame marshal failed", "key", f.Key, "error", err)
		return
	}
	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	env := frameEnvelope(data, now, h.seq)
	h.latest = env
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- env:
		default:
		}
	}
}

// frameEnvelope wraps pre-encoded frame JSON without re-marshalling it.
func frameEnvelope(frame []byte, now time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(frame)+96)
	buf = append(buf, `{"type":"frame","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","frame":`...)
	buf = append(buf, frame...)
	buf = append(buf, '}')
	return buf
}

// Register attaches an upgraded connection and starts its pumps. The most
// recent frame, if any, is queued first so the client paints immediately.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	if h.latest != nil {
		c.send <- h.latest
	}
	h.mu.Unlock()

	h.metrics.AddClients(1)
	slog.Info("surface client connected", "clients", count)

	go c.writePump()
	go c.readPump()
	return c
}

// RemoveClient detaches c and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	h.metrics.AddClients(-1)
	slog.Info("surface client disconnected", "clients", count)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.RemoveClient(c)
	}
}
