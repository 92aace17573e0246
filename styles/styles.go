// Package styles loads annotation style sheets from TOML.
//
// A sheet carries the base text style, the highlight styles in text
// order, and optional named styles that highlights can start from:
//
//	[base]
//	color = "#1e1e1e"
//	size  = "12pt"
//
//	[named.loud]
//	weight = "bold"
//
//	[[highlight]]
//	style = "loud"
//	color = "C1"
package styles

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/hltx/hightext/layout"
)

// Sheet is a decoded style sheet ready for layout.Build.
type Sheet struct {
	Base       layout.Style
	Highlights []layout.Style
	Named      map[string]layout.Style
}

type sheetDoc struct {
	Base      *styleDoc           `toml:"base"`
	Highlight []styleDoc          `toml:"highlight"`
	Named     map[string]styleDoc `toml:"named"`
}

type styleDoc struct {
	Style   string      `toml:"style"` // named style this entry starts from
	Extends string      `toml:"extends"`
	Font    string      `toml:"font"`
	Color   string      `toml:"color"`
	Weight  string      `toml:"weight"`
	Slant   string      `toml:"slant"`
	Size    string      `toml:"size"`
	Box     *boxDoc     `toml:"box"`
	Effects []effectDoc `toml:"effects"`
	Inset   *insetDoc   `toml:"inset"`
}

type boxDoc struct {
	Fill        string `toml:"fill"`
	Stroke      string `toml:"stroke"`
	StrokeWidth string `toml:"stroke_width"`
	Pad         string `toml:"pad"`
	Radius      string `toml:"radius"`
}

type effectDoc struct {
	Kind    string `toml:"kind"`
	Color   string `toml:"color"`
	Width   string `toml:"width"`
	OffsetX string `toml:"offset_x"`
	OffsetY string `toml:"offset_y"`
}

type insetDoc struct {
	Width  string `toml:"width"`
	Height string `toml:"height"`
	Pad    string `toml:"pad"`
}

// Load reads and parses a TOML style sheet from disk.
func Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("styles: reading %s: %w", path, err)
	}
	sheet, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("styles: %s: %w", path, err)
	}
	return sheet, nil
}

// Parse decodes a TOML style sheet.
func Parse(data []byte) (*Sheet, error) {
	var doc sheetDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	named := map[string]layout.Style{}
	for name, sd := range doc.Named {
		st, err := sd.toStyle()
		if err != nil {
			return nil, fmt.Errorf("named.%s: %w", name, err)
		}
		st.Name = name
		st.Extends = sd.Extends
		named[name] = st
	}
	named, err := layout.ResolveNamed(named)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Named: named}
	if doc.Base != nil {
		base, err := doc.Base.resolve(named)
		if err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		sheet.Base = base
	}
	for i, hd := range doc.Highlight {
		st, err := hd.resolve(named)
		if err != nil {
			return nil, fmt.Errorf("highlight %d: %w", i, err)
		}
		sheet.Highlights = append(sheet.Highlights, st)
	}
	return sheet, nil
}

// resolve converts the entry and, when it names a starting style,
// layers the inline fields over that named style.
func (sd styleDoc) resolve(named map[string]layout.Style) (layout.Style, error) {
	st, err := sd.toStyle()
	if err != nil {
		return layout.Style{}, err
	}
	if sd.Style == "" {
		return st, nil
	}
	parent, ok := named[sd.Style]
	if !ok {
		return layout.Style{}, fmt.Errorf("unknown style %q", sd.Style)
	}
	return st.Over(parent), nil
}

func (sd styleDoc) toStyle() (layout.Style, error) {
	st := layout.Style{
		Font:   sd.Font,
		Color:  sd.Color,
		Weight: sd.Weight,
		Slant:  sd.Slant,
	}
	if sd.Color != "" {
		if _, err := layout.ParseColor(sd.Color); err != nil {
			return st, err
		}
	}
	var err error
	if st.Size, err = parseLength(sd.Size); err != nil {
		return st, fmt.Errorf("size: %w", err)
	}
	if sd.Box != nil {
		box := &layout.Box{Fill: sd.Box.Fill, Stroke: sd.Box.Stroke}
		if box.StrokeWidth, err = parseLength(sd.Box.StrokeWidth); err != nil {
			return st, fmt.Errorf("box.stroke_width: %w", err)
		}
		if box.Pad, err = parseLength(sd.Box.Pad); err != nil {
			return st, fmt.Errorf("box.pad: %w", err)
		}
		if box.Radius, err = parseLength(sd.Box.Radius); err != nil {
			return st, fmt.Errorf("box.radius: %w", err)
		}
		st.Box = box
	}
	for i, ed := range sd.Effects {
		if ed.Kind != layout.EffectStroke && ed.Kind != layout.EffectShadow {
			return st, fmt.Errorf("effects[%d]: unknown kind %q", i, ed.Kind)
		}
		eff := layout.Effect{Kind: ed.Kind, Color: ed.Color}
		if eff.Width, err = parseLength(ed.Width); err != nil {
			return st, fmt.Errorf("effects[%d].width: %w", i, err)
		}
		if eff.OffsetX, err = parseLength(ed.OffsetX); err != nil {
			return st, fmt.Errorf("effects[%d].offset_x: %w", i, err)
		}
		if eff.OffsetY, err = parseLength(ed.OffsetY); err != nil {
			return st, fmt.Errorf("effects[%d].offset_y: %w", i, err)
		}
		st.Effects = append(st.Effects, eff)
	}
	if sd.Inset != nil {
		inset := &layout.InsetSpec{}
		if inset.Width, err = parseLength(sd.Inset.Width); err != nil {
			return st, fmt.Errorf("inset.width: %w", err)
		}
		if inset.Height, err = parseLength(sd.Inset.Height); err != nil {
			return st, fmt.Errorf("inset.height: %w", err)
		}
		if inset.Pad, err = parseLength(sd.Inset.Pad); err != nil {
			return st, fmt.Errorf("inset.pad: %w", err)
		}
		st.Inset = inset
	}
	return st, nil
}

func parseLength(v string) (layout.Length, error) {
	if v == "" {
		return layout.Length{}, nil
	}
	return layout.ParseLength(v)
}
