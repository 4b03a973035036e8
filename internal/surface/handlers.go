package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michalhajok/trackerF-sub001/internal/export"
)

const snapshotTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes mounts the surface endpoints on mux:
//
//	/ws            frame stream and input events
//	/api/frame     current frame as JSON
//	/api/snapshot  current frame as ?format=png|svg
//
// background is the default snapshot fill, overridable with ?bg=.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, background string) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade failed", "error", err)
			return
		}
		hub.Register(conn)
	})

	mux.HandleFunc("/api/frame", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()
		f, err := hub.ctrl.Snapshot(ctx)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f)
	})

	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		q := r.URL.Query()
		format := export.PNG
		if s := q.Get("format"); s != "" {
			parsed, err := export.ParseFormat(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			format = parsed
		}
		opts := export.Options{Format: format, Background: background}
		if bg := q.Get("bg"); bg != "" {
			opts.Background = bg
		}

		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()
		f, err := hub.ctrl.Snapshot(ctx)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, f, opts); err != nil {
			slog.Error("snapshot export failed", "key", f.Key, "format", format, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		hub.metrics.ObserveExport(string(format))
		w.Header().Set("Content-Type", format.ContentType())
		w.Write(buf.Bytes())
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
