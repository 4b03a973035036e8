package redisfeed

import (
	"errors"
	"testing"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

func TestChannelNames(t *testing.T) {
	if got := TickChannel("aapl"); got != "pub:tick:AAPL" {
		t.Errorf("TickChannel = %q", got)
	}
	if got := QuoteKey("msft"); got != "quote:MSFT" {
		t.Errorf("QuoteKey = %q", got)
	}
}

func TestParseQuote(t *testing.T) {
	q, err := ParseQuote("AAPL", map[string]string{"price": "187.5", "change_pct": "-1.2", "ts": "1705329005"})
	if err != nil {
		t.Fatalf("ParseQuote: %v", err)
	}
	if q.Symbol != "AAPL" || q.CurrentPrice != 187.5 || q.ChangePercent != -1.2 {
		t.Errorf("unexpected quote %+v", q)
	}

	if _, err := ParseQuote("AAPL", nil); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty hash, got %v", err)
	}
	if _, err := ParseQuote("AAPL", map[string]string{"price": "abc"}); err == nil {
		t.Error("expected error for bad price")
	}
}
