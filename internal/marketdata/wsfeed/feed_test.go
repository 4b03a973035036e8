package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// tickServer accepts one connection at a time, sends msgs and then closes
// the connection.
func tickServer(t *testing.T, msgs []string, gotSymbol chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		select {
		case gotSymbol <- r.URL.Query().Get("symbol"):
		default:
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(Config{URL: "http://localhost:9001/ws"}); err == nil {
		t.Error("expected error for non-ws scheme")
	}
	if _, err := New(Config{URL: "://bad"}); err == nil {
		t.Error("expected error for unparseable url")
	}
}

func TestURL_AddsSymbol(t *testing.T) {
	f, err := New(Config{URL: "ws://localhost:9001/ws?token=x"})
	if err != nil {
		t.Fatal(err)
	}
	got := f.URL("aapl")
	if !strings.Contains(got, "symbol=AAPL") || !strings.Contains(got, "token=x") {
		t.Errorf("URL = %s", got)
	}
}

func TestSubscribe_DeliversFilteredTicks(t *testing.T) {
	symbols := make(chan string, 4)
	srv := tickServer(t, []string{
		`{"symbol":"AAPL","price":187.1,"volume":5,"ts":"2024-01-15T14:30:05Z"}`,
		`{"symbol":"MSFT","price":400,"volume":1,"ts":"2024-01-15T14:30:05Z"}`,
		`not json`,
		`{"price":187.3,"volume":2,"ts":"2024-01-15T14:30:06Z"}`,
	}, symbols)

	f, err := New(Config{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond, MaxReconnectDelay: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var ticks []model.Tick
	var statuses []bool
	reconnects := 0
	f.OnReconnect = func() {
		mu.Lock()
		reconnects++
		mu.Unlock()
	}

	unsub, err := f.Subscribe(context.Background(), "aapl",
		func(tk model.Tick) {
			mu.Lock()
			ticks = append(ticks, tk)
			mu.Unlock()
		},
		func(up bool) {
			mu.Lock()
			statuses = append(statuses, up)
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(ticks) >= 2 && reconnects >= 1
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for ticks and a reconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
	unsub()

	if got := <-symbols; got != "AAPL" {
		t.Errorf("server saw symbol %q, want AAPL", got)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, tk := range ticks {
		if tk.Symbol != "AAPL" {
			t.Errorf("unexpected tick for %s", tk.Symbol)
		}
	}
	if ticks[0].Price != 187.1 || ticks[1].Price != 187.3 {
		t.Errorf("unexpected prices %v, %v", ticks[0].Price, ticks[1].Price)
	}
	if len(statuses) < 2 || !statuses[0] || statuses[1] {
		t.Errorf("expected connect then disconnect, got %v", statuses)
	}
}

func TestSubscribe_EmptySymbol(t *testing.T) {
	f, _ := New(Config{URL: "ws://localhost:1/ws"})
	if _, err := f.Subscribe(context.Background(), " ", func(model.Tick) {}, nil); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestSubscribe_UnreachableReportsOfflineOnce(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	f, err := New(Config{URL: url, ReconnectDelay: 5 * time.Millisecond, MaxReconnectDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var statuses []bool
	reconnects := 0
	f.OnReconnect = func() {
		mu.Lock()
		reconnects++
		mu.Unlock()
	}
	unsub, err := f.Subscribe(context.Background(), "AAPL", func(model.Tick) {}, func(up bool) {
		mu.Lock()
		statuses = append(statuses, up)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := reconnects >= 3
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for dial retries")
		}
		time.Sleep(5 * time.Millisecond)
	}
	unsub()

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 1 || statuses[0] {
		t.Errorf("expected a single offline report, got %v", statuses)
	}
}
