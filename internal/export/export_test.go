package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

func readyFrame(t *testing.T) chart.Frame {
	t.Helper()
	key := model.SeriesKey{Symbol: "AAPL", Period: model.Period1D, Interval: model.Interval1M}
	cfg := chart.DefaultConfig(key)
	cfg.ChartType = render.ChartCandlestick
	cfg.Width, cfg.Height = 320, 200
	c := chart.New(cfg, render.DefaultTheme(), nil)

	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, 25)
	for i := range bars {
		p := 100 + float64(i%5)
		bars[i] = model.Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 100}
	}
	req := c.BeginFetch()
	require.True(t, c.CompleteFetch(chart.FetchResult{ID: req.ID, Key: req.Key, Bars: bars}))
	f := c.Frame()
	require.Equal(t, chart.StatusReady, f.Status)
	return f
}

func TestWrite_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, readyFrame(t), Options{Format: PNG, Background: "#131722"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWrite_SVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, readyFrame(t), Options{Format: SVG}))
	assert.Contains(t, buf.String(), "<svg")
	assert.Contains(t, buf.String(), "path")
}

func TestWrite_EmptySurface(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, chart.Frame{}, Options{Format: PNG}))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" SVG ")
	require.NoError(t, err)
	assert.Equal(t, SVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())
	assert.Equal(t, "image/png", PNG.ContentType())
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, ok := parseColor("#26a69a")
	require.True(t, ok)
	assert.Equal(t, uint8(0x26), c.R)
	assert.Equal(t, uint8(0xa6), c.G)
	assert.Equal(t, uint8(0x9a), c.B)
	assert.Equal(t, uint8(0xff), c.A)

	c, ok = parseColor("#ef535080")
	require.True(t, ok)
	assert.Equal(t, uint8(0x80), c.A)

	c, ok = parseColor("#fff")
	require.True(t, ok)
	assert.Equal(t, uint8(0xff), c.R)

	for _, bad := range []string{"", "#12", "#zzzzzz", "red"} {
		_, ok := parseColor(bad)
		assert.False(t, ok, bad)
	}
}
