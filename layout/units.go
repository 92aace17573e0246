package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe types for lengths and row spacing.

// Unit records the unit a length value was authored in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// String returns a short suffix for the unit.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Pt constructs a Length in points.
func Pt(v float64) Length { return Length{Value: v, Unit: UnitPT} }

// Mm constructs a Length in millimeters.
func Mm(v float64) Length { return Length{Value: v, Unit: UnitMM} }

func (l Length) IsZero() bool { return l.Value == 0 }

// To converts this length to the target unit. Supported targets are
// UnitMM and UnitPT; unit-less values pass through unchanged.
func (l Length) To(target Unit) float64 {
	mm := l.Value
	switch l.Unit {
	case UnitMM:
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * 25.4
	case UnitPT:
		mm = l.Value * PtToMm
	case UnitNone:
		return l.Value
	}
	if target == UnitPT {
		return mm * MmToPt
	}
	return mm
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// ParseLength parses a length string such as "12pt" or "4.5mm". A bare
// number is taken as millimeters.
func ParseLength(value string) (Length, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return Length{}, fmt.Errorf("layout: empty length")
	}
	unit := UnitMM
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("layout: invalid length %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// SpacingKind distinguishes factor-based vs absolute row spacing.
type SpacingKind int

const (
	SpacingFactor SpacingKind = iota
	SpacingAbsolute
)

// DefaultLineSpacing is the gap between rows as a factor of row height.
const DefaultLineSpacing = 0.25

// SpacingSpec preserves author intent for the gap between rows: either a
// factor of the row height (e.g. 0.25x) or an absolute length.
type SpacingSpec struct {
	Kind   SpacingKind `json:"kind"`
	Factor float64     `json:"factor,omitempty"`
	Len    Length      `json:"len,omitempty"`
}

// Factor constructs a factor-based spacing spec.
func Factor(f float64) SpacingSpec { return SpacingSpec{Kind: SpacingFactor, Factor: f} }

// Absolute constructs an absolute spacing spec.
func Absolute(l Length) SpacingSpec { return SpacingSpec{Kind: SpacingAbsolute, Len: l} }

// ParseSpacing parses "0.25x" as a factor and any length as absolute.
func ParseSpacing(value string) (SpacingSpec, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f < 0 {
			return SpacingSpec{}, fmt.Errorf("layout: invalid spacing factor %q", value)
		}
		return Factor(f), nil
	}
	l, err := ParseLength(value)
	if err != nil {
		return SpacingSpec{}, err
	}
	return Absolute(l), nil
}

// Resolve computes the gap in mm below a row of the given height (mm).
// A zero-value spec resolves to the default factor.
func (s SpacingSpec) Resolve(rowHeight float64) float64 {
	switch s.Kind {
	case SpacingFactor:
		f := s.Factor
		if f == 0 {
			f = DefaultLineSpacing
		}
		return rowHeight * f
	case SpacingAbsolute:
		return s.Len.ToMM()
	default:
		return rowHeight * DefaultLineSpacing
	}
}
