package layout

import (
	"fmt"
	"strings"
)

// This file defines the layout result shared by the builder, the
// renderers and the debug JSON writer. All coordinates are mm with the
// origin at the top-left, y growing downward.

// VAlign anchors the block vertically against the annotation's y.
type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignBottom VAlign = "bottom"
	VAlignCenter VAlign = "center"
)

// ParseVAlign normalizes a vertical alignment value.
func ParseVAlign(v string) (VAlign, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "bottom":
		return VAlignBottom, nil
	case "top":
		return VAlignTop, nil
	case "center", "middle":
		return VAlignCenter, nil
	default:
		return "", fmt.Errorf("layout: valign must be top, bottom or center, got %q", v)
	}
}

// HAlign aligns each row horizontally against the annotation's x.
type HAlign string

const (
	HAlignLeft   HAlign = "left"
	HAlignRight  HAlign = "right"
	HAlignCenter HAlign = "center"
)

// ParseHAlign normalizes a horizontal alignment value, accepting the
// start/end aliases.
func ParseHAlign(v string) (HAlign, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "left", "start":
		return HAlignLeft, nil
	case "right", "end":
		return HAlignRight, nil
	case "center", "middle":
		return HAlignCenter, nil
	default:
		return "", fmt.Errorf("layout: halign must be left, right or center, got %q", v)
	}
}

// Rect is an axis-aligned box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Union grows r to enclose o. A zero-area rect is treated as empty.
func (r Rect) Union(o Rect) Rect {
	if o.Width <= 0 && o.Height <= 0 {
		return r
	}
	if r.Width <= 0 && r.Height <= 0 {
		return o
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.MaxX(), o.MaxX()), max(r.MaxY(), o.MaxY())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Fragment is one styled run of text placed within a row.
type Fragment struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"` // top edge
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Ascent    float64 `json:"ascent"`
	Style     Style   `json:"style"`
	Highlight int     `json:"highlight"` // index into highlight styles, -1 for base text
}

// Baseline returns the y of the fragment's baseline.
func (f Fragment) Baseline() float64 { return f.Y + f.Ascent }

// Bounds returns the fragment's box.
func (f Fragment) Bounds() Rect {
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// PlacedRow is one laid-out line: fragments sharing a baseline.
type PlacedRow struct {
	Y         float64    `json:"y"` // top edge
	Height    float64    `json:"height"`
	Width     float64    `json:"width"`
	Baseline  float64    `json:"baseline"`
	GapBefore float64    `json:"gapBefore,omitempty"`
	Fragments []Fragment `json:"fragments"`
}

// Inset is a reserved child drawing region anchored to a highlight.
type Inset struct {
	Highlight int  `json:"highlight"`
	Rect      Rect `json:"rect"`
}

// Result is the positioned annotation handed to a renderer.
type Result struct {
	Rows   []PlacedRow `json:"rows"`
	Insets []Inset     `json:"insets,omitempty"`
	Bounds Rect        `json:"bounds"`
	X      float64     `json:"x"` // anchor point as given
	Y      float64     `json:"y"`
}

// Fragments returns all fragments in visual order.
func (res *Result) Fragments() []Fragment {
	var out []Fragment
	for _, row := range res.Rows {
		out = append(out, row.Fragments...)
	}
	return out
}
