package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/michalhajok/trackerF-sub001/internal/indicator"
	"github.com/michalhajok/trackerF-sub001/internal/model"
	"github.com/michalhajok/trackerF-sub001/internal/render"
)

// Live feed sources.
const (
	LiveRedis = "redis"
	LiveWS    = "ws"
	LiveNone  = "none"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Listeners
	HTTPAddr    string
	MetricsAddr string

	// Infrastructure
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	TickWSURL     string

	// LiveSource selects the real-time provider: redis, ws or none.
	LiveSource string

	// Indicator toggles, e.g. "SMA:20,EMA:50,RSI:14,BB:20:2"
	IndicatorConfigs string

	// Initial chart selection
	DefaultSymbol   string
	DefaultPeriod   model.Period
	DefaultInterval model.Interval

	LogLevel string

	// Optional YAML file overriding the render theme.
	StyleFile string
}

// Load reads .env (if present) and then environment variables with
// sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		TickWSURL:     getEnv("TICK_WS_URL", "ws://localhost:9001/ws"),
		LiveSource:    strings.ToLower(getEnv("LIVE_SOURCE", LiveWS)),

		// Default: only the 20-bar SMA enabled
		IndicatorConfigs: getEnv("INDICATOR_CONFIGS", ""),

		DefaultSymbol:   strings.ToUpper(getEnv("DEFAULT_SYMBOL", "AAPL")),
		DefaultPeriod:   model.Period(getEnv("DEFAULT_PERIOD", string(model.Period1D))),
		DefaultInterval: model.Interval(getEnv("DEFAULT_INTERVAL", string(model.Interval5M))),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		StyleFile: getEnv("CHART_STYLE_FILE", ""),
	}

	switch cfg.LiveSource {
	case LiveRedis, LiveWS, LiveNone:
	default:
		slog.Warn("unknown LIVE_SOURCE, real-time disabled", "value", cfg.LiveSource)
		cfg.LiveSource = LiveNone
	}
	if !cfg.DefaultPeriod.Valid() {
		slog.Warn("invalid DEFAULT_PERIOD, using 1d", "value", cfg.DefaultPeriod)
		cfg.DefaultPeriod = model.Period1D
	}
	if !cfg.DefaultInterval.Valid() {
		slog.Warn("invalid DEFAULT_INTERVAL, using 5m", "value", cfg.DefaultInterval)
		cfg.DefaultInterval = model.Interval5M
	}
	return cfg
}

// DefaultKey returns the series key the chart opens with.
func (c *Config) DefaultKey() model.SeriesKey {
	return model.SeriesKey{Symbol: c.DefaultSymbol, Period: c.DefaultPeriod, Interval: c.DefaultInterval}
}

// Indicators parses IndicatorConfigs into indicator specs. An empty value
// yields the default set.
func (c *Config) Indicators() []indicator.Spec {
	return indicator.ParseSpecs(c.IndicatorConfigs)
}

// Theme returns the render theme, applying StyleFile on top of the
// defaults when set.
func (c *Config) Theme() (render.Theme, error) {
	if c.StyleFile == "" {
		return render.DefaultTheme(), nil
	}
	return LoadTheme(c.StyleFile)
}

// LoadTheme reads a YAML style file. Fields left out keep their default
// values; a missing file yields the default theme.
func LoadTheme(path string) (render.Theme, error) {
	th := render.DefaultTheme()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return th, fmt.Errorf("read style file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &th); err != nil {
			return render.DefaultTheme(), fmt.Errorf("parse style file: %w", err)
		}
	}
	return th.Normalize(), nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
