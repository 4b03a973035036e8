package main

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/series"
)

// instrument holds per-symbol simulation state.
type instrument struct {
	Symbol    string
	Price     float64
	PrevClose float64
}

// Default starting prices; unknown symbols start at 100.
var defaultPrices = map[string]float64{
	"AAPL": 185.50,
	"MSFT": 410.25,
	"GOOG": 142.80,
	"TSLA": 238.10,
	"SPY":  478.90,
}

func parseInstruments(s string) []instrument {
	var out []instrument
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		price := defaultPrices[sym]
		if price == 0 {
			price = 100
		}
		out = append(out, instrument{Symbol: sym, Price: price, PrevClose: price})
	}
	return out
}

// walkPrice applies a small random walk (up to ±0.1%) to simulate movement.
func walkPrice(rng *rand.Rand, price float64) float64 {
	pct := (rng.Float64()*0.2 - 0.1) / 100.0
	next := math.Round(price*(1+pct)*100) / 100
	if next < 0.01 {
		next = 0.01
	}
	return next
}

// nextTick advances inst by one step and returns the tick.
func nextTick(rng *rand.Rand, inst *instrument, now time.Time) model.Tick {
	inst.Price = walkPrice(rng, inst.Price)
	return model.Tick{
		Symbol:    inst.Symbol,
		Price:     inst.Price,
		Volume:    float64(rng.Intn(100) + 1),
		Timestamp: now.UTC(),
	}
}

func (inst instrument) quote() model.Quote {
	q := model.Quote{Symbol: inst.Symbol, CurrentPrice: inst.Price}
	if inst.PrevClose > 0 {
		q.ChangePercent = (inst.Price - inst.PrevClose) / inst.PrevClose * 100
	}
	return q
}

// history generates n consecutive bars of width ending at the bucket that
// contains end, walking backwards from last so the series joins the live
// price.
func history(rng *rand.Rand, last float64, end time.Time, width time.Duration, n int) []model.Bar {
	if n <= 0 {
		return nil
	}
	bars := make([]model.Bar, n)
	c := last
	ts := series.Bucket(end, width)
	for i := n - 1; i >= 0; i-- {
		o := c
		for step := 0; step < 4; step++ {
			o = walkPrice(rng, o)
		}
		bars[i] = model.Bar{
			Timestamp: ts,
			Open:      o,
			High:      math.Max(o, c) * (1 + rng.Float64()*0.002),
			Low:       math.Min(o, c) * (1 - rng.Float64()*0.002),
			Close:     c,
			Volume:    float64(rng.Intn(5000) + 100),
		}
		c = o
		ts = ts.Add(-width)
	}
	return bars
}

// recorder folds live ticks into 1m bars per symbol and reports each bar
// once its minute has closed.
type recorder struct {
	stores map[string]*series.Store
}

func newRecorder() *recorder {
	return &recorder{stores: make(map[string]*series.Store)}
}

// seed primes the symbol's minute series with its last historical bar.
func (r *recorder) seed(symbol string, last model.Bar) {
	s := series.New()
	s.Replace(model.SeriesKey{Symbol: symbol, Period: model.Period1D, Interval: model.Interval1M}, []model.Bar{last})
	r.stores[symbol] = s
}

// observe merges t and returns the bar that t's arrival closed, if any.
func (r *recorder) observe(t model.Tick) (model.Bar, bool) {
	s, ok := r.stores[t.Symbol]
	if !ok {
		return model.Bar{}, false
	}
	prev, _ := s.Last()
	if s.Merge(t) != series.Appended {
		return model.Bar{}, false
	}
	// Keep the store bounded; only the forming bar matters.
	last, _ := s.Last()
	s.Replace(s.Key(), []model.Bar{last})
	return prev, true
}
