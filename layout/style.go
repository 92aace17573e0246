package layout

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color uses 0-255 RGBA channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// DefaultTextColor is used when neither the base style nor an override
// names a color.
var DefaultTextColor = Color{R: 30, G: 30, B: 30, A: 255}

// cycleColors maps the C0..C9 shorthand onto the common ten-color
// plotting cycle, so style sheets written against plotting defaults
// carry over unchanged.
var cycleColors = map[string]Color{
	"c0": {31, 119, 180, 255},
	"c1": {255, 127, 14, 255},
	"c2": {44, 160, 44, 255},
	"c3": {214, 39, 40, 255},
	"c4": {148, 103, 189, 255},
	"c5": {140, 86, 75, 255},
	"c6": {227, 119, 194, 255},
	"c7": {127, 127, 127, 255},
	"c8": {188, 189, 34, 255},
	"c9": {23, 190, 207, 255},
}

// ParseColor resolves a color value: #rgb, #rrggbb and #rrggbbaa hex
// forms, the C0..C9 cycle shorthand, or an SVG 1.1 color name.
func ParseColor(value string) (Color, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return Color{}, fmt.Errorf("layout: empty color")
	}
	if strings.HasPrefix(v, "#") {
		return parseHexColor(v)
	}
	if c, ok := cycleColors[v]; ok {
		return c, nil
	}
	if rgba, ok := colornames.Map[v]; ok {
		return Color{R: rgba.R, G: rgba.G, B: rgba.B, A: rgba.A}, nil
	}
	return Color{}, fmt.Errorf("layout: unknown color %q", value)
}

func parseHexColor(value string) (Color, error) {
	v := strings.TrimPrefix(value, "#")
	switch len(v) {
	case 3:
		r := strings.Repeat(string(v[0]), 2)
		g := strings.Repeat(string(v[1]), 2)
		b := strings.Repeat(string(v[2]), 2)
		return Color{R: mustHex(r), G: mustHex(g), B: mustHex(b), A: 255}, nil
	case 6:
		return Color{R: mustHex(v[0:2]), G: mustHex(v[2:4]), B: mustHex(v[4:6]), A: 255}, nil
	case 8:
		return Color{R: mustHex(v[0:2]), G: mustHex(v[2:4]), B: mustHex(v[4:6]), A: mustHex(v[6:8])}, nil
	default:
		return Color{}, fmt.Errorf("layout: cannot parse color %q", value)
	}
}

func mustHex(s string) uint8 {
	v, _ := strconv.ParseInt(s, 16, 32)
	return uint8(v)
}

// Box draws a padded rectangle behind a fragment.
type Box struct {
	Fill        string `json:"fill,omitempty"`
	Stroke      string `json:"stroke,omitempty"`
	StrokeWidth Length `json:"strokeWidth,omitempty"`
	Pad         Length `json:"pad,omitempty"`
	Radius      Length `json:"radius,omitempty"`
}

// Effect kinds supported by the renderer.
const (
	EffectStroke = "stroke"
	EffectShadow = "shadow"
)

// Effect is a path effect applied beneath a fragment's glyphs: an
// outline stroke or an offset shadow.
type Effect struct {
	Kind    string `json:"kind"`
	Color   string `json:"color,omitempty"`
	Width   Length `json:"width,omitempty"`   // stroke line width
	OffsetX Length `json:"offsetX,omitempty"` // shadow offset
	OffsetY Length `json:"offsetY,omitempty"`
}

// InsetSpec reserves a child drawing region anchored to a fragment. The
// region replaces the fragment's glyphs when the fragment text is empty,
// otherwise it sits directly above them.
type InsetSpec struct {
	Width  Length `json:"width"`
	Height Length `json:"height"`
	Pad    Length `json:"pad,omitempty"`
}

// Style describes rendering attributes for a fragment. Zero-valued
// fields inherit from the base style.
type Style struct {
	Name    string    `json:"name,omitempty"`
	Extends string    `json:"extends,omitempty"`
	Font    string    `json:"font,omitempty"`
	Color   string    `json:"color,omitempty"`
	Weight  string    `json:"weight,omitempty"`
	Slant   string    `json:"slant,omitempty"`
	Size    Length    `json:"size,omitempty"`
	Box     *Box      `json:"box,omitempty"`
	Effects []Effect  `json:"effects,omitempty"`
	Inset   *InsetSpec `json:"inset,omitempty"`
}

// Over layers s on top of base: set fields of s win, everything else is
// inherited from base.
func (s Style) Over(base Style) Style {
	out := base
	out.Name = s.Name
	out.Extends = ""
	if s.Font != "" {
		out.Font = s.Font
	}
	if s.Color != "" {
		out.Color = s.Color
	}
	if s.Weight != "" {
		out.Weight = s.Weight
	}
	if s.Slant != "" {
		out.Slant = s.Slant
	}
	if !s.Size.IsZero() {
		out.Size = s.Size
	}
	if s.Box != nil {
		out.Box = s.Box
	}
	if len(s.Effects) > 0 {
		out.Effects = s.Effects
	}
	if s.Inset != nil {
		out.Inset = s.Inset
	}
	return out
}

// Face is the subset of a style that determines glyph metrics.
type Face struct {
	Font   string  `json:"font"`
	Weight string  `json:"weight,omitempty"`
	Slant  string  `json:"slant,omitempty"`
	SizePt float64 `json:"sizePt"`
}

// Face extracts the measurement-relevant attributes. Styles without an
// explicit size measure at 12pt.
func (s Style) Face() Face {
	size := s.Size
	if size.IsZero() {
		size = Pt(12)
	}
	return Face{Font: s.Font, Weight: s.Weight, Slant: s.Slant, SizePt: size.ToPT()}
}

// TextColor resolves the style's color, falling back to the default.
func (s Style) TextColor() Color {
	if s.Color == "" {
		return DefaultTextColor
	}
	c, err := ParseColor(s.Color)
	if err != nil {
		return DefaultTextColor
	}
	return c
}

// ResolveNamed flattens extends chains in a set of named styles and
// rejects cycles and references to undefined styles.
func ResolveNamed(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("layout: style %s not defined", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("layout: style inheritance cycle at %s", name)
		}
		visiting[name] = true

		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			style = style.Over(parent)
			style.Name = name
		}
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// DefaultHighlightColor mirrors the conventional "second cycle color"
// default for highlights when no styles are given.
const DefaultHighlightColor = "C1"

// ExpandHighlightStyles matches highlight styles to the highlight count:
// zero styles fall back to the default highlight color, a single style
// repeats for every highlight, otherwise the counts must agree.
func ExpandHighlightStyles(styles []Style, n int) ([]Style, error) {
	switch {
	case n == 0:
		if len(styles) > 1 {
			return nil, fmt.Errorf("layout: %d highlight styles given but text has no highlights", len(styles))
		}
		return nil, nil
	case len(styles) == 0:
		styles = []Style{{Color: DefaultHighlightColor}}
		fallthrough
	case len(styles) == 1:
		out := make([]Style, n)
		for i := range out {
			out[i] = styles[0]
		}
		return out, nil
	case len(styles) == n:
		return styles, nil
	default:
		return nil, fmt.Errorf("layout: specify one highlight style or one per highlight: text has %d highlights, got %d styles", n, len(styles))
	}
}
