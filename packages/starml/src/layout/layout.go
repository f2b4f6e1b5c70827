// Package layout provides the value types commonly bound to view properties, together with
// their string forms used in markup.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
)

// Edges are per-side thicknesses, such as margins or padding.
type Edges struct {
	Left, Top, Right, Bottom int
}

// String returns the markup form of the edges
func (e Edges) String() string {
	return fmt.Sprintf("%d, %d, %d, %d", e.Left, e.Top, e.Right, e.Bottom)
}

// ParseEdges parses "all", "horizontal, vertical" or "left, top, right, bottom".
func ParseEdges(s string) (Edges, error) {
	values, err := parseInts(s, "Edges")
	if err != nil {
		return Edges{}, err
	}
	switch len(values) {
	case 1:
		return Edges{values[0], values[0], values[0], values[0]}, nil
	case 2:
		return Edges{values[0], values[1], values[0], values[1]}, nil
	case 4:
		return Edges{values[0], values[1], values[2], values[3]}, nil
	}
	return Edges{}, fmt.Errorf("invalid Edges %q: expected 1, 2 or 4 values, got %d", s, len(values))
}

// Point is an integer position
type Point struct {
	X, Y int
}

// String returns the markup form of the point
func (p Point) String() string {
	return fmt.Sprintf("%d, %d", p.X, p.Y)
}

// ParsePoint parses "x, y"
func ParsePoint(s string) (Point, error) {
	values, err := parseInts(s, "Point")
	if err != nil {
		return Point{}, err
	}
	if len(values) != 2 {
		return Point{}, fmt.Errorf("invalid Point %q: expected 2 values, got %d", s, len(values))
	}
	return Point{values[0], values[1]}, nil
}

// Vector2 is a floating-point position or size
type Vector2 struct {
	X, Y float32
}

// String returns the markup form of the vector
func (v Vector2) String() string {
	return fmt.Sprintf("%g, %g", v.X, v.Y)
}

// ParseVector2 parses "x, y"
func ParseVector2(s string) (Vector2, error) {
	parts := splitValues(s)
	if len(parts) != 2 {
		return Vector2{}, fmt.Errorf("invalid Vector2 %q: expected 2 values, got %d", s, len(parts))
	}
	var result [2]float32
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return Vector2{}, fmt.Errorf("invalid Vector2 %q: %w", s, err)
		}
		result[i] = float32(v)
	}
	return Vector2{result[0], result[1]}, nil
}

// Rectangle is an integer rectangle
type Rectangle struct {
	X, Y, Width, Height int
}

// String returns the markup form of the rectangle
func (r Rectangle) String() string {
	return fmt.Sprintf("%d, %d, %d, %d", r.X, r.Y, r.Width, r.Height)
}

// ParseRectangle parses "x, y, width, height"
func ParseRectangle(s string) (Rectangle, error) {
	values, err := parseInts(s, "Rectangle")
	if err != nil {
		return Rectangle{}, err
	}
	if len(values) != 4 {
		return Rectangle{}, fmt.Errorf("invalid Rectangle %q: expected 4 values, got %d", s, len(values))
	}
	return Rectangle{values[0], values[1], values[2], values[3]}, nil
}

// LengthType is the unit of a Length
type LengthType int

const (
	// LengthTypeContent sizes to the content
	LengthTypeContent LengthType = iota
	// LengthTypePx is an exact number of pixels
	LengthTypePx
	// LengthTypePercent is a percentage of the container
	LengthTypePercent
	// LengthTypeStretch fills the remaining space
	LengthTypeStretch
)

// String returns the name of the length type
func (t LengthType) String() string {
	switch t {
	case LengthTypeContent:
		return "Content"
	case LengthTypePx:
		return "Px"
	case LengthTypePercent:
		return "Percent"
	case LengthTypeStretch:
		return "Stretch"
	}
	return fmt.Sprintf("LengthType(%d)", int(t))
}

// Length is one dimension of a layout
type Length struct {
	Type  LengthType
	Value float32
}

// Px returns a pixel length
func Px(value float32) Length {
	return Length{Type: LengthTypePx, Value: value}
}

// Percent returns a percentage length
func Percent(value float32) Length {
	return Length{Type: LengthTypePercent, Value: value}
}

// Content returns a content-sized length
func Content() Length {
	return Length{Type: LengthTypeContent}
}

// Stretch returns a stretching length
func Stretch() Length {
	return Length{Type: LengthTypeStretch}
}

// String returns the markup form of the length
func (l Length) String() string {
	switch l.Type {
	case LengthTypePx:
		return strconv.FormatFloat(float64(l.Value), 'g', -1, 32) + "px"
	case LengthTypePercent:
		return strconv.FormatFloat(float64(l.Value), 'g', -1, 32) + "%"
	case LengthTypeStretch:
		return "stretch"
	}
	return "content"
}

// ParseLength parses "content", "stretch", "<n>px", "<n>%" or a bare pixel count.
func ParseLength(s string) (Length, error) {
	text := strings.TrimSpace(s)
	switch strings.ToLower(text) {
	case "content":
		return Content(), nil
	case "stretch":
		return Stretch(), nil
	}
	lengthType := LengthTypePx
	number := text
	switch {
	case strings.HasSuffix(text, "%"):
		lengthType = LengthTypePercent
		number = strings.TrimSuffix(text, "%")
	case strings.HasSuffix(strings.ToLower(text), "px"):
		number = text[:len(text)-2]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(number), 32)
	if err != nil {
		return Length{}, fmt.Errorf("invalid Length %q: %w", s, err)
	}
	return Length{Type: lengthType, Value: float32(v)}, nil
}

// LayoutParameters are the width and height of a view
type LayoutParameters struct {
	Width, Height Length
}

// String returns the markup form of the layout
func (p LayoutParameters) String() string {
	return p.Width.String() + " " + p.Height.String()
}

// ParseLayoutParameters parses "<width> <height>", where each is a Length.
func ParseLayoutParameters(s string) (LayoutParameters, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return LayoutParameters{}, fmt.Errorf("invalid layout %q: expected \"<width> <height>\"", s)
	}
	width, err := ParseLength(parts[0])
	if err != nil {
		return LayoutParameters{}, err
	}
	height, err := ParseLength(parts[1])
	if err != nil {
		return LayoutParameters{}, err
	}
	return LayoutParameters{Width: width, Height: height}, nil
}

// RegisterConverters registers the string conversions of every layout type with r.
func RegisterConverters(r *converters.Registry) {
	converters.RegisterFunc(r, ParseEdges)
	converters.RegisterFunc(r, ParsePoint)
	converters.RegisterFunc(r, ParseVector2)
	converters.RegisterFunc(r, ParseRectangle)
	converters.RegisterFunc(r, ParseLength)
	converters.RegisterFunc(r, ParseLayoutParameters)
	converters.RegisterFunc(r, func(p Point) (Vector2, error) {
		return Vector2{float32(p.X), float32(p.Y)}, nil
	})
	converters.RegisterEnum(r, LengthTypeContent, LengthTypePx, LengthTypePercent, LengthTypeStretch)
}

func splitValues(s string) []string {
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseInts(s, typeName string) ([]int, error) {
	parts := splitValues(s)
	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", typeName, s, err)
		}
		values[i] = v
	}
	return values, nil
}
