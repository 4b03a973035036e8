// cmd/chartsnap renders one chart from the SQLite history to a PNG or SVG
// file without running the server.
//
// Usage:
//
//	go run ./cmd/chartsnap --symbol=AAPL --period=5d --interval=15m --type=candlestick --out=aapl.png
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/michalhajok/trackerF-sub001/config"
	"github.com/michalhajok/trackerF-sub001/internal/chart"
	"github.com/michalhajok/trackerF-sub001/internal/export"
	"github.com/michalhajok/trackerF-sub001/internal/indicator"
	"github.com/michalhajok/trackerF-sub001/internal/logger"
	"github.com/michalhajok/trackerF-sub001/internal/marketdata/sqlite"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

type options struct {
	DBPath     string
	Key        model.SeriesKey
	ChartType  render.ChartType
	Indicators []indicator.Spec
	NoVolume   bool
	Width      float64
	Height     float64
	Out        string
	Format     export.Format
	StyleFile  string
	Timeout    time.Duration
}

func main() {
	logger.Init("chartsnap", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	symbol := flag.String("symbol", "AAPL", "Ticker symbol")
	period := flag.String("period", string(model.Period1D), "Lookback period: 1d,5d,1mo,3mo,6mo,1y,5y")
	interval := flag.String("interval", string(model.Interval5M), "Bar interval: 1m,5m,15m,30m,1h,1d,1wk")
	chartType := flag.String("type", string(render.ChartLine), "Chart type: line, area, candlestick")
	indicators := flag.String("indicators", "", "Indicator specs, e.g. SMA:20,EMA:50,RSI:14,BB:20:2 (default: SMA:20)")
	noVolume := flag.Bool("no-volume", false, "Hide the volume panel")
	width := flag.Int("width", 1200, "Image width in pixels")
	height := flag.Int("height", 600, "Image height in pixels")
	out := flag.String("out", "chart.png", "Output file; the extension picks the format unless --format is set")
	format := flag.String("format", "", "Output format: png or svg")
	style := flag.String("style", "", "Optional YAML style file")
	flag.Parse()

	key := model.SeriesKey{
		Symbol:   strings.ToUpper(strings.TrimSpace(*symbol)),
		Period:   model.Period(*period),
		Interval: model.Interval(*interval),
	}
	if err := key.Validate(); err != nil {
		fail("invalid series", err)
	}
	ct, err := render.ParseChartType(*chartType)
	if err != nil {
		fail("invalid chart type", err)
	}
	f, err := resolveFormat(*format, *out)
	if err != nil {
		fail("invalid format", err)
	}

	opts := options{
		DBPath:     *dbPath,
		Key:        key,
		ChartType:  ct,
		Indicators: enableAll(indicator.ParseSpecs(*indicators), *indicators != ""),
		NoVolume:   *noVolume,
		Width:      float64(*width),
		Height:     float64(*height),
		Out:        *out,
		Format:     f,
		StyleFile:  *style,
		Timeout:    30 * time.Second,
	}
	n, err := run(context.Background(), opts)
	if err != nil {
		fail("snapshot failed", err)
	}
	fmt.Printf("wrote %s (%s, %s)\n", opts.Out, f, humanize.Bytes(uint64(n)))
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// resolveFormat uses the explicit format when given, else the output
// extension.
func resolveFormat(explicit, out string) (export.Format, error) {
	if explicit != "" {
		return export.ParseFormat(explicit)
	}
	ext := strings.TrimPrefix(filepath.Ext(out), ".")
	if ext == "" {
		return export.PNG, nil
	}
	return export.ParseFormat(ext)
}

// enableAll switches on every listed indicator when the user named them
// explicitly.
func enableAll(specs []indicator.Spec, explicit bool) []indicator.Spec {
	if !explicit {
		return specs
	}
	for i := range specs {
		specs[i].Enabled = true
	}
	return specs
}

// run loads the series, renders one frame and writes it to opts.Out. It
// returns the number of bytes written.
func run(ctx context.Context, opts options) (int, error) {
	theme := render.DefaultTheme()
	if opts.StyleFile != "" {
		th, err := config.LoadTheme(opts.StyleFile)
		if err != nil {
			return 0, err
		}
		theme = th
	}

	provider, err := sqlite.NewProvider(opts.DBPath)
	if err != nil {
		return 0, err
	}
	defer provider.Close()

	cfg := chart.DefaultConfig(opts.Key)
	cfg.ChartType = opts.ChartType
	cfg.Indicators = opts.Indicators
	cfg.ShowVolume = !opts.NoVolume
	cfg.RealTime = false
	cfg.Width, cfg.Height = opts.Width, opts.Height
	c := chart.New(cfg, theme, nil)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req := c.BeginFetch()
	start := time.Now()
	bars, err := provider.GetHistoricalBars(ctx, req.Key)
	c.CompleteFetch(chart.FetchResult{ID: req.ID, Key: req.Key, Bars: bars, Err: err, Elapsed: time.Since(start)})
	if c.Status() != chart.StatusReady {
		f := c.Frame()
		return 0, fmt.Errorf("%s: %s", c.Status(), f.Message)
	}
	if q, err := provider.GetQuote(ctx, opts.Key.Symbol); err == nil {
		c.SetQuote(q)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, c.Frame(), export.Options{Format: opts.Format, Background: theme.Background}); err != nil {
		return 0, err
	}
	if err := os.WriteFile(opts.Out, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", opts.Out, err)
	}
	slog.Info("snapshot written", "key", opts.Key.String(), "bars", len(bars), "path", opts.Out)
	return buf.Len(), nil
}
