package indicator

import (
	"log/slog"
	"strconv"
	"strings"
)

// DefaultBandWidth is the Bollinger multiplier used when a spec omits it.
const DefaultBandWidth = 2.0

// Spec describes one indicator the user can toggle on the chart.
type Spec struct {
	Kind    Kind    `json:"kind" yaml:"kind"`
	Window  int     `json:"window" yaml:"window"`
	K       float64 `json:"k" yaml:"k"` // Bollinger only; 0 collapses the bands
	Enabled bool    `json:"enabled" yaml:"enabled"`
}

// Name returns the display/result name, e.g. "SMA_20" or "BB_20_2".
func (s Spec) Name() string {
	name := string(s.Kind) + "_" + itoaInd(s.Window)
	if s.Kind == KindBollinger {
		name += "_" + strconv.FormatFloat(s.K, 'f', -1, 64)
	}
	return name
}

// DefaultSpecs returns the indicator set offered when nothing is configured.
// Only the 20-bar SMA starts enabled.
func DefaultSpecs() []Spec {
	return []Spec{
		{Kind: KindSMA, Window: 20, Enabled: true},
		{Kind: KindSMA, Window: 50},
		{Kind: KindEMA, Window: 12},
		{Kind: KindEMA, Window: 26},
		{Kind: KindBollinger, Window: 20, K: DefaultBandWidth},
		{Kind: KindRSI, Window: 14},
	}
}

// ParseSpecs parses "TYPE:PERIOD[:K],..." into specs, all enabled.
// Example: "SMA:20,EMA:9,RSI:14,BB:20:2".
// Returns DefaultSpecs if the input is empty or nothing valid was parsed.
func ParseSpecs(s string) []Spec {
	if strings.TrimSpace(s) == "" {
		return DefaultSpecs()
	}

	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		tokens := strings.Split(part, ":")
		if len(tokens) < 2 || len(tokens) > 3 {
			continue
		}
		kind := Kind(strings.ToUpper(strings.TrimSpace(tokens[0])))
		window, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil || window <= 0 || !knownKind(kind) {
			slog.Warn("skipping invalid indicator spec", "spec", part)
			continue
		}
		spec := Spec{Kind: kind, Window: window, Enabled: true}
		if kind == KindBollinger {
			spec.K = DefaultBandWidth
			if len(tokens) == 3 {
				k, err := strconv.ParseFloat(strings.TrimSpace(tokens[2]), 64)
				if err != nil || k < 0 {
					slog.Warn("skipping invalid bollinger width", "spec", part)
					continue
				}
				spec.K = k
			}
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		slog.Warn("no valid indicator specs parsed, using defaults", "input", s)
		return DefaultSpecs()
	}
	return specs
}

func knownKind(k Kind) bool {
	switch k {
	case KindSMA, KindEMA, KindRSI, KindBollinger:
		return true
	}
	return false
}
