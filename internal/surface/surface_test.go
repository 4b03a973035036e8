package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

// fakeController records every call as a short string.
type fakeController struct {
	mu    sync.Mutex
	calls []string
	frame chart.Frame
	err   error
}

func (f *fakeController) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) SetSymbol(s string) error       { return f.record("symbol %s", s) }
func (f *fakeController) SetPeriod(p model.Period) error { return f.record("period %s", p) }
func (f *fakeController) SetInterval(iv model.Interval) error {
	return f.record("interval %s", iv)
}
func (f *fakeController) Reload() error                         { return f.record("reload") }
func (f *fakeController) SetChartType(t render.ChartType) error { return f.record("type %s", t) }
func (f *fakeController) ToggleIndicator(n string) error        { return f.record("toggle %s", n) }
func (f *fakeController) SetShowIndicators(b bool) error        { return f.record("indicators %v", b) }
func (f *fakeController) SetShowVolume(b bool) error            { return f.record("volume %v", b) }
func (f *fakeController) SetRealTime(b bool) error              { return f.record("realtime %v", b) }
func (f *fakeController) Resize(w, h float64) error             { return f.record("resize %gx%g", w, h) }
func (f *fakeController) PointerEnter(x, y float64) error       { return f.record("enter %g,%g", x, y) }
func (f *fakeController) PointerMove(x, y float64) error        { return f.record("move %g,%g", x, y) }
func (f *fakeController) PointerLeave() error                   { return f.record("leave") }
func (f *fakeController) ToggleFullscreen() error               { return f.record("fullscreen") }
func (f *fakeController) Snapshot(context.Context) (chart.Frame, error) {
	return f.frame, f.err
}

func boolPtr(b bool) *bool { return &b }

func TestDispatch(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Type: MsgPointerEnter, X: 1, Y: 2}, "enter 1,2"},
		{Message{Type: MsgPointerMove, X: 10.5, Y: 20}, "move 10.5,20"},
		{Message{Type: MsgPointerLeave}, "leave"},
		{Message{Type: MsgSetSymbol, Value: "msft"}, "symbol msft"},
		{Message{Type: MsgSetPeriod, Value: "5d"}, "period 5d"},
		{Message{Type: MsgSetInterval, Value: "1h"}, "interval 1h"},
		{Message{Type: MsgReload}, "reload"},
		{Message{Type: MsgChartType, Value: "candlestick"}, "type candlestick"},
		{Message{Type: MsgToggleIndicator, Value: "SMA20"}, "toggle SMA20"},
		{Message{Type: MsgShowIndicators, On: boolPtr(false)}, "indicators false"},
		{Message{Type: MsgShowVolume, On: boolPtr(true)}, "volume true"},
		{Message{Type: MsgRealTime, On: boolPtr(false)}, "realtime false"},
		{Message{Type: MsgResize, Width: 640, Height: 360}, "resize 640x360"},
		{Message{Type: MsgFullscreen}, "fullscreen"},
	}
	for _, tt := range tests {
		t.Run(tt.msg.Type, func(t *testing.T) {
			ctrl := &fakeController{}
			require.NoError(t, Dispatch(ctrl, tt.msg))
			assert.Equal(t, []string{tt.want}, ctrl.Calls())
		})
	}
}

func TestDispatch_Rejects(t *testing.T) {
	tests := []Message{
		{Type: "zoom"},
		{Type: MsgSetPeriod, Value: "2d"},
		{Type: MsgSetInterval, Value: "7m"},
		{Type: MsgChartType, Value: "heikin"},
		{Type: MsgShowVolume},
	}
	for _, msg := range tests {
		ctrl := &fakeController{}
		assert.Error(t, Dispatch(ctrl, msg), msg.Type)
		assert.Empty(t, ctrl.Calls(), msg.Type)
	}
	err := Dispatch(&fakeController{}, Message{Type: MsgSetPeriod, Value: "2d"})
	assert.True(t, errors.Is(err, model.ErrInvalidKey))
}

func TestFrameEnvelope(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	raw := frameEnvelope([]byte(`{"status":"ready"}`), now, 7)

	var env struct {
		Type  string          `json:"type"`
		Seq   int64           `json:"seq"`
		TS    string          `json:"ts"`
		Frame json.RawMessage `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "frame", env.Type)
	assert.Equal(t, int64(7), env.Seq)
	assert.Equal(t, "2024-01-15T14:30:00Z", env.TS)
	assert.JSONEq(t, `{"status":"ready"}`, string(env.Frame))
}

func testFrame() chart.Frame {
	return chart.Frame{
		Status: chart.StatusReady,
		Key:    "AAPL:1d:5m",
		Width:  120,
		Height: 80,
		Layers: []render.Layer{{
			Name: render.LayerPrice,
			Primitives: []render.Primitive{
				render.Line(0, 0, 120, 80, render.Style{Stroke: "#2962ff", Width: 1}),
			},
		}},
	}
}

type testServer struct {
	ctrl *fakeController
	hub  *Hub
	srv  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := &fakeController{frame: testFrame()}
	hub := NewHub(ctrl, nil)
	mux := http.NewServeMux()
	RegisterRoutes(mux, hub, "#131722")
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &testServer{ctrl: ctrl, hub: hub, srv: srv}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHub_BroadcastFrame(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	s.hub.Broadcast(testFrame())
	msg := readJSON(t, conn)
	assert.Equal(t, "frame", msg["type"])
	assert.Equal(t, float64(1), msg["seq"])
	frame := msg["frame"].(map[string]any)
	assert.Equal(t, "AAPL:1d:5m", frame["key"])
	assert.Equal(t, "ready", frame["status"])
}

func TestHub_LatestFrameOnConnect(t *testing.T) {
	s := newTestServer(t)
	s.hub.Broadcast(testFrame())
	s.hub.Broadcast(testFrame())

	conn := s.dial(t)
	msg := readJSON(t, conn)
	assert.Equal(t, float64(2), msg["seq"])
}

func TestHub_InputForwarded(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Type: MsgPointerMove, X: 40, Y: 25}))
	require.NoError(t, conn.WriteJSON(Message{Type: MsgSetSymbol, Value: "MSFT"}))
	require.Eventually(t, func() bool { return len(s.ctrl.Calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"move 40,25", "symbol MSFT"}, s.ctrl.Calls())
}

func TestHub_ErrorReply(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Type: "zoom"}))
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["error"], "zoom")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
}

func TestHub_Ping(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Ping: 42}))
	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, float64(42), msg["ping"])
}

func TestHub_Disconnect(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)
	conn.Close()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_Frame(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.srv.URL + "/api/frame")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var f chart.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&f))
	assert.Equal(t, "AAPL:1d:5m", f.Key)
	assert.Len(t, f.Layers, 1)
}

func TestHandler_Snapshot(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/api/snapshot")
	require.NoError(t, err)
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	resp, err = http.Get(s.srv.URL + "/api/snapshot?format=svg")
	require.NoError(t, err)
	buf.Reset()
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, buf.String(), "<svg")

	resp, err = http.Get(s.srv.URL + "/api/snapshot?format=gif")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SnapshotUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.ctrl.err = chart.ErrStopped

	resp, err := http.Get(s.srv.URL + "/api/frame")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
