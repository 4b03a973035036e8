package render

import (
	"fmt"
	"strings"

	"github.com/michalhajok/trackerF-sub001/internal/scale"
)

// ChartType selects the price renderer. The three styles are mutually
// exclusive.
type ChartType string

const (
	ChartLine        ChartType = "line"
	ChartArea        ChartType = "area"
	ChartCandlestick ChartType = "candlestick"
)

// ParseChartType accepts the chart type names case-insensitively.
func ParseChartType(s string) (ChartType, error) {
	switch ChartType(strings.ToLower(strings.TrimSpace(s))) {
	case ChartLine:
		return ChartLine, nil
	case ChartArea:
		return ChartArea, nil
	case ChartCandlestick, "candle", "candles":
		return ChartCandlestick, nil
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

// Theme holds the style parameters shared by all renderers.
type Theme struct {
	Background  string  `json:"background" yaml:"background"`
	Line        string  `json:"line" yaml:"line"`
	AreaFill    string  `json:"area_fill" yaml:"area_fill"`
	Up          string  `json:"up" yaml:"up"`
	Down        string  `json:"down" yaml:"down"`
	VolumeUp    string  `json:"volume_up" yaml:"volume_up"`
	VolumeDown  string  `json:"volume_down" yaml:"volume_down"`
	Grid        string  `json:"grid" yaml:"grid"`
	AxisText    string  `json:"axis_text" yaml:"axis_text"`
	Crosshair   string  `json:"crosshair" yaml:"crosshair"`
	TooltipFill string  `json:"tooltip_fill" yaml:"tooltip_fill"`
	TooltipText string  `json:"tooltip_text" yaml:"tooltip_text"`
	BandFill    string  `json:"band_fill" yaml:"band_fill"`
	StatusText  string  `json:"status_text" yaml:"status_text"`
	FontSize    float64 `json:"font_size" yaml:"font_size"`
	LineWidth   float64 `json:"line_width" yaml:"line_width"`

	// Overlay colors are assigned to indicator results in order.
	Palette []string `json:"palette" yaml:"palette"`

	GridLines   int           `json:"grid_lines" yaml:"grid_lines"`
	TimeLabels  int           `json:"time_labels" yaml:"time_labels"`
	VolumeRatio float64       `json:"volume_ratio" yaml:"volume_ratio"`
	MaxBody     float64       `json:"max_body" yaml:"max_body"`
	Padding     scale.Padding `json:"padding" yaml:"padding"`
}

// DefaultTheme returns the dark dashboard theme.
func DefaultTheme() Theme {
	return Theme{
		Background:  "#131722",
		Line:        "#2962ff",
		AreaFill:    "#2962ff33",
		Up:          "#26a69a",
		Down:        "#ef5350",
		VolumeUp:    "#26a69a80",
		VolumeDown:  "#ef535080",
		Grid:        "#2a2e39",
		AxisText:    "#b2b5be",
		Crosshair:   "#9598a1",
		TooltipFill: "#1e222de6",
		TooltipText: "#d1d4dc",
		BandFill:    "#7e57c21a",
		StatusText:  "#787b86",
		FontSize:    11,
		LineWidth:   1.5,
		Palette:     []string{"#ff9800", "#e91e63", "#00bcd4", "#7e57c2", "#8bc34a", "#ffeb3b"},
		GridLines:   5,
		TimeLabels:  6,
		VolumeRatio: 0.18,
		MaxBody:     24,
		Padding:     scale.Padding{Top: 24, Right: 64, Bottom: 24, Left: 8},
	}
}

// Normalize fills zero fields from DefaultTheme so partial overrides (e.g.
// from a YAML style file) stay drawable.
func (t Theme) Normalize() Theme {
	d := DefaultTheme()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.Background, d.Background)
	fill(&t.Line, d.Line)
	fill(&t.AreaFill, d.AreaFill)
	fill(&t.Up, d.Up)
	fill(&t.Down, d.Down)
	fill(&t.VolumeUp, d.VolumeUp)
	fill(&t.VolumeDown, d.VolumeDown)
	fill(&t.Grid, d.Grid)
	fill(&t.AxisText, d.AxisText)
	fill(&t.Crosshair, d.Crosshair)
	fill(&t.TooltipFill, d.TooltipFill)
	fill(&t.TooltipText, d.TooltipText)
	fill(&t.BandFill, d.BandFill)
	fill(&t.StatusText, d.StatusText)
	if t.FontSize <= 0 {
		t.FontSize = d.FontSize
	}
	if t.LineWidth <= 0 {
		t.LineWidth = d.LineWidth
	}
	if len(t.Palette) == 0 {
		t.Palette = d.Palette
	}
	if t.GridLines < 2 {
		t.GridLines = d.GridLines
	}
	if t.TimeLabels < 2 {
		t.TimeLabels = d.TimeLabels
	}
	if t.VolumeRatio <= 0 {
		t.VolumeRatio = d.VolumeRatio
	}
	if t.MaxBody <= 0 {
		t.MaxBody = d.MaxBody
	}
	if t.Padding == (scale.Padding{}) {
		t.Padding = d.Padding
	}
	return t
}

func (t Theme) color(i int) string {
	if len(t.Palette) == 0 {
		return t.Line
	}
	return t.Palette[i%len(t.Palette)]
}

func (t Theme) text() Style {
	return Style{Fill: t.AxisText, FontSize: t.FontSize}
}
