// Package render turns bars, indicator results and crosshair state into
// typed drawing primitives.
//
// Renderers are pure: (data, scale geometry, theme) -> []Primitive. They do
// not hold state and return nil for input they cannot draw, so a bad layer
// degrades to "nothing drawn" instead of failing the frame.
package render

// Kind is the primitive type understood by drawing backends.
type Kind string

const (
	KindPolyline Kind = "polyline"
	KindPolygon  Kind = "polygon"
	KindRect     Kind = "rect"
	KindLine     Kind = "line"
	KindText     Kind = "text"
)

// Align positions text relative to its anchor point.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style carries stroke/fill attributes. Colors are CSS hex strings
// ("#rrggbb" or "#rrggbbaa"); an empty color means "none".
type Style struct {
	Stroke   string    `json:"stroke,omitempty"`
	Fill     string    `json:"fill,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Dash     []float64 `json:"dash,omitempty"`
	FontSize float64   `json:"font_size,omitempty"`
}

// Primitive is one drawable item. Which fields are meaningful depends on
// Kind:
//
//	polyline, polygon: Points
//	rect:              X, Y, W, H
//	line:              X, Y -> X2, Y2
//	text:              X, Y anchor, Text, Align
type Primitive struct {
	Kind   Kind    `json:"kind"`
	Points []Point `json:"points,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	Text   string  `json:"text,omitempty"`
	Align  Align   `json:"align,omitempty"`
	Style  Style   `json:"style"`
}

// Polyline builds an open path.
func Polyline(points []Point, s Style) Primitive {
	return Primitive{Kind: KindPolyline, Points: points, Style: s}
}

// Polygon builds a closed, filled path.
func Polygon(points []Point, s Style) Primitive {
	return Primitive{Kind: KindPolygon, Points: points, Style: s}
}

// Rect builds a rectangle with its top-left corner at (x, y).
func Rect(x, y, w, h float64, s Style) Primitive {
	return Primitive{Kind: KindRect, X: x, Y: y, W: w, H: h, Style: s}
}

// Line builds a segment from (x1, y1) to (x2, y2).
func Line(x1, y1, x2, y2 float64, s Style) Primitive {
	return Primitive{Kind: KindLine, X: x1, Y: y1, X2: x2, Y2: y2, Style: s}
}

// Text builds a label anchored at (x, y).
func Text(x, y float64, text string, align Align, s Style) Primitive {
	return Primitive{Kind: KindText, X: x, Y: y, Text: text, Align: align, Style: s}
}

// LayerName identifies a layer in z-order.
type LayerName string

const (
	LayerPrice     LayerName = "price"
	LayerOverlay   LayerName = "overlay"
	LayerVolume    LayerName = "volume"
	LayerAxis      LayerName = "axis"
	LayerCrosshair LayerName = "crosshair"
	LayerStatus    LayerName = "status"
)

// ZOrder is the fixed bottom-to-top drawing order of a chart frame.
var ZOrder = []LayerName{LayerPrice, LayerOverlay, LayerVolume, LayerAxis, LayerCrosshair}

// Layer is a named group of primitives drawn together.
type Layer struct {
	Name       LayerName   `json:"name"`
	Primitives []Primitive `json:"primitives"`
}
