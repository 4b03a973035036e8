package chart

import (
	"sync"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

// tickMailbox holds the latest undelivered tick per symbol and the latest
// feed status. A newer tick overwrites an older one; the overwritten tick's
// volume is carried over so coalescing never loses traded quantity.
// Producers never block, so a provider may call in while the loop is
// waiting on that provider to unsubscribe.
type tickMailbox struct {
	mu      sync.Mutex
	pending map[string]model.Tick
	order   []string
	status  *bool
	wake    chan struct{}
}

func newTickMailbox() *tickMailbox {
	return &tickMailbox{
		pending: make(map[string]model.Tick),
		wake:    make(chan struct{}, 1),
	}
}

// put stores t and reports whether it replaced an undelivered tick.
func (m *tickMailbox) put(t model.Tick) (coalesced bool) {
	m.mu.Lock()
	if prev, ok := m.pending[t.Symbol]; ok {
		coalesced = true
		if prev.Timestamp.After(t.Timestamp) {
			// keep the later tick, still count the volume
			prev.Volume += t.Volume
			t = prev
		} else {
			t.Volume += prev.Volume
		}
	} else {
		m.order = append(m.order, t.Symbol)
	}
	m.pending[t.Symbol] = t
	m.mu.Unlock()

	m.signal()
	return coalesced
}

// putStatus records the latest feed connectivity.
func (m *tickMailbox) putStatus(connected bool) {
	m.mu.Lock()
	m.status = &connected
	m.mu.Unlock()
	m.signal()
}

// takeStatus returns and clears the pending status, if any.
func (m *tickMailbox) takeStatus() (connected, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return false, false
	}
	connected = *m.status
	m.status = nil
	return connected, true
}

func (m *tickMailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// drain returns the pending ticks in first-arrival order and empties the box.
func (m *tickMailbox) drain() []model.Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil
	}
	out := make([]model.Tick, 0, len(m.order))
	for _, sym := range m.order {
		out = append(out, m.pending[sym])
		delete(m.pending, sym)
	}
	m.order = m.order[:0]
	return out
}
