package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// Inbound message types.
const (
	MsgPointerEnter    = "pointer_enter"
	MsgPointerMove     = "pointer_move"
	MsgPointerLeave    = "pointer_leave"
	MsgSetSymbol       = "set_symbol"
	MsgSetPeriod       = "set_period"
	MsgSetInterval     = "set_interval"
	MsgReload          = "reload"
	MsgChartType       = "chart_type"
	MsgToggleIndicator = "toggle_indicator"
	MsgShowIndicators  = "show_indicators"
	MsgShowVolume      = "show_volume"
	MsgRealTime        = "real_time"
	MsgResize          = "resize"
	MsgFullscreen      = "fullscreen"
)

// Message is one client input event. Only the fields relevant to Type are read.
type Message struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Value  string  `json:"value,omitempty"`
	On     *bool   `json:"on,omitempty"`
	Ping   int64   `json:"ping,omitempty"`
}

var errMissingOn = errors.New(`"on" is required`)

// Client is a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(errorReply(err))
			continue
		}
		if msg.Type == "" && msg.Ping > 0 {
			c.reply(map[string]any{
				"type":      "pong",
				"ping":      msg.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			continue
		}
		if err := Dispatch(c.hub.ctrl, msg); err != nil {
			slog.Debug("surface message rejected", "type", msg.Type, "error", err)
			c.reply(errorReply(err))
		}
	}
}

// reply queues a direct response. Dropped if the client is backed up.
func (c *Client) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func errorReply(err error) map[string]any {
	return map[string]any{"type": "error", "error": err.Error()}
}

// Dispatch forwards msg to ctrl. Unknown types and malformed values are
// rejected without touching the chart.
func Dispatch(ctrl Controller, msg Message) error {
	switch msg.Type {
	case MsgPointerEnter:
		return ctrl.PointerEnter(msg.X, msg.Y)
	case MsgPointerMove:
		return ctrl.PointerMove(msg.X, msg.Y)
	case MsgPointerLeave:
		return ctrl.PointerLeave()
	case MsgSetSymbol:
		return ctrl.SetSymbol(msg.Value)
	case MsgSetPeriod:
		p := model.Period(msg.Value)
		if !p.Valid() {
			return fmt.Errorf("period %q: %w", msg.Value, model.ErrInvalidKey)
		}
		return ctrl.SetPeriod(p)
	case MsgSetInterval:
		iv := model.Interval(msg.Value)
		if !iv.Valid() {
			return fmt.Errorf("interval %q: %w", msg.Value, model.ErrInvalidKey)
		}
		return ctrl.SetInterval(iv)
	case MsgReload:
		return ctrl.Reload()
	case MsgChartType:
		t, err := render.ParseChartType(msg.Value)
		if err != nil {
			return err
		}
		return ctrl.SetChartType(t)
	case MsgToggleIndicator:
		return ctrl.ToggleIndicator(msg.Value)
	case MsgShowIndicators:
		if msg.On == nil {
			return errMissingOn
		}
		return ctrl.SetShowIndicators(*msg.On)
	case MsgShowVolume:
		if msg.On == nil {
			return errMissingOn
		}
		return ctrl.SetShowVolume(*msg.On)
	case MsgRealTime:
		if msg.On == nil {
			return errMissingOn
		}
		return ctrl.SetRealTime(*msg.On)
	case MsgResize:
		return ctrl.Resize(msg.Width, msg.Height)
	case MsgFullscreen:
		return ctrl.ToggleFullscreen()
	}
	return fmt.Errorf("unknown message type %q", msg.Type)
}
