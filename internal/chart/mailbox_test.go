package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalhajok/trackerF-sub001/internal/model"
)

func TestTickMailbox_LastWriteWins(t *testing.T) {
	m := newTickMailbox()
	assert.False(t, m.put(model.Tick{Symbol: "AAPL", Price: 100, Volume: 1, Timestamp: t0}))
	assert.False(t, m.put(model.Tick{Symbol: "MSFT", Price: 400, Volume: 2, Timestamp: t0}))
	assert.True(t, m.put(model.Tick{Symbol: "AAPL", Price: 101, Volume: 3, Timestamp: t0.Add(time.Second)}))

	got := m.drain()
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, 101.0, got[0].Price)
	assert.Equal(t, 4.0, got[0].Volume)
	assert.Equal(t, "MSFT", got[1].Symbol)

	assert.Nil(t, m.drain())
}

func TestTickMailbox_OutOfOrderKeepsLater(t *testing.T) {
	m := newTickMailbox()
	m.put(model.Tick{Symbol: "AAPL", Price: 101, Volume: 1, Timestamp: t0.Add(time.Second)})
	m.put(model.Tick{Symbol: "AAPL", Price: 99, Volume: 1, Timestamp: t0})

	got := m.drain()
	require.Len(t, got, 1)
	assert.Equal(t, 101.0, got[0].Price)
	assert.Equal(t, 2.0, got[0].Volume)
}

func TestTickMailbox_WakeIsNonBlocking(t *testing.T) {
	m := newTickMailbox()
	for i := 0; i < 10; i++ {
		m.put(model.Tick{Symbol: "AAPL", Price: float64(100 + i), Timestamp: t0.Add(time.Duration(i) * time.Second)})
	}
	assert.Len(t, m.wake, 1)
}

func TestTickMailbox_StatusLatestWins(t *testing.T) {
	m := newTickMailbox()
	_, ok := m.takeStatus()
	assert.False(t, ok)

	m.putStatus(false)
	m.putStatus(true)
	assert.Len(t, m.wake, 1)

	connected, ok := m.takeStatus()
	require.True(t, ok)
	assert.True(t, connected)

	_, ok = m.takeStatus()
	assert.False(t, ok)
}
