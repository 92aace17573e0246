package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/hltx/hightext/markup"
)

// Annotation is the input to Build: the marked-up text, its anchor
// point, and the styling/arrangement parameters. Coordinates are mm.
type Annotation struct {
	Text string
	X    float64
	Y    float64

	// Style applies to all text; Highlights override it per delimited
	// substring, either one style for all highlights or one per
	// highlight in text order.
	Style      Style
	Highlights []Style

	Delim  markup.Delimiters // zero value means markup.Default
	VAlign VAlign            // default bottom
	HAlign HAlign            // default left

	// HPad is extra horizontal padding between adjacent fragments
	// within a row.
	HPad Length

	// LineSpacing is the gap between rows; the zero value means a 0.25
	// factor of the row height.
	LineSpacing SpacingSpec

	// WrapWidth re-flows rows longer than this width (mm) by greedy
	// wrapping at whitespace. Zero disables wrapping.
	WrapWidth float64
}

// Build runs the three layout stages: parse the delimited text, measure
// each styled fragment with the typesetter, and place fragments within
// rows and rows within the block.
func Build(a Annotation, opts BuildOptions) (*Result, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: missing measurement backend Typesetter")
	}

	delim := a.Delim
	if delim == (markup.Delimiters{}) {
		delim = markup.Default
	}
	doc, err := markup.ParseString(a.Text, delim)
	if err != nil {
		return nil, err
	}

	valign, err := ParseVAlign(string(a.VAlign))
	if err != nil {
		return nil, err
	}
	halign, err := ParseHAlign(string(a.HAlign))
	if err != nil {
		return nil, err
	}

	highlights, err := ExpandHighlightStyles(a.Highlights, doc.Highlights())
	if err != nil {
		return nil, err
	}

	rows := doc.Rows
	for len(rows) > 0 && rows[0].Blank() {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("layout: annotation text is empty")
	}

	b := &builder{
		ts:         opts.Typesetter,
		base:       a.Style,
		highlights: highlights,
		hpad:       a.HPad.ToMM(),
		wrapWidth:  a.WrapWidth,
	}

	placed, err := b.measureRows(rows)
	if err != nil {
		return nil, err
	}

	arrange(placed, a, valign, halign)

	res := &Result{Rows: placed, X: a.X, Y: a.Y}
	for i := range placed {
		for _, frag := range placed[i].Fragments {
			res.Bounds = res.Bounds.Union(frag.Bounds())
			if frag.Style.Inset != nil {
				res.Insets = append(res.Insets, makeInset(frag))
			}
		}
	}
	for _, ins := range res.Insets {
		res.Bounds = res.Bounds.Union(ins.Rect)
	}
	return res, nil
}

type builder struct {
	ts         Typesetter
	base       Style
	highlights []Style
	hpad       float64
	wrapWidth  float64

	highlightCount int
}

// styledRun is a chunk resolved against the base style, before
// measurement and wrapping.
type styledRun struct {
	text      string
	style     Style
	highlight int
}

// measureRows resolves styles, optionally wraps, and measures every
// fragment. Rows come back with local geometry only (heights, widths,
// relative fragment offsets); arrange applies anchor and alignment.
func (b *builder) measureRows(rows []markup.Row) ([]PlacedRow, error) {
	var placed []PlacedRow
	for _, row := range rows {
		if row.Blank() {
			blank, err := b.blankRow()
			if err != nil {
				return nil, err
			}
			placed = append(placed, blank)
			continue
		}

		runs := b.resolveRuns(row)
		lines := [][]styledRun{runs}
		if b.wrapWidth > 0 {
			var err error
			lines, err = b.wrapRuns(runs)
			if err != nil {
				return nil, err
			}
		}
		for _, line := range lines {
			pr, err := b.measureLine(line)
			if err != nil {
				return nil, err
			}
			placed = append(placed, pr)
		}
	}
	return placed, nil
}

// resolveRuns assigns each chunk its effective style. Empty highlights
// still consume a style slot; they only survive as runs when the style
// reserves an inset region.
func (b *builder) resolveRuns(row markup.Row) []styledRun {
	var runs []styledRun
	for _, chunk := range row.Chunks {
		run := styledRun{text: chunk.Text, style: b.base, highlight: -1}
		if chunk.Highlight {
			run.highlight = b.highlightCount
			run.style = b.highlights[b.highlightCount].Over(b.base)
			b.highlightCount++
		}
		if run.text == "" && run.style.Inset == nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs
}

// blankRow produces a fragment-free row whose height comes from the
// base face, so blank input lines advance the cursor by one line.
func (b *builder) blankRow() (PlacedRow, error) {
	ext, err := b.ts.Measure("", b.base.Face())
	if err != nil {
		return PlacedRow{}, err
	}
	return PlacedRow{Height: ext.Height(), Baseline: ext.Ascent}, nil
}

// measureLine measures each run and lays the fragments out left to
// right from x=0 on a shared baseline at the row's max ascent.
func (b *builder) measureLine(runs []styledRun) (PlacedRow, error) {
	var pr PlacedRow
	type measured struct {
		run styledRun
		ext Extent
	}
	ms := make([]measured, 0, len(runs))
	maxAscent, maxDescent := 0.0, 0.0
	for _, run := range runs {
		ext, err := b.measureRun(run)
		if err != nil {
			return pr, err
		}
		ms = append(ms, measured{run: run, ext: ext})
		maxAscent = math.Max(maxAscent, ext.Ascent)
		maxDescent = math.Max(maxDescent, ext.Descent)
	}

	pr.Height = maxAscent + maxDescent
	pr.Baseline = maxAscent
	x := 0.0
	for i, m := range ms {
		if i > 0 {
			x += b.hpad
		}
		pr.Fragments = append(pr.Fragments, Fragment{
			Text:      m.run.text,
			X:         x,
			Y:         maxAscent - m.ext.Ascent,
			Width:     m.ext.Width,
			Height:    m.ext.Height(),
			Ascent:    m.ext.Ascent,
			Style:     m.run.style,
			Highlight: m.run.highlight,
		})
		x += m.ext.Width
	}
	pr.Width = x
	return pr, nil
}

// measureRun measures a single run; empty inset runs take their extent
// from the inset spec instead of glyph metrics.
func (b *builder) measureRun(run styledRun) (Extent, error) {
	if run.text == "" && run.style.Inset != nil {
		spec := run.style.Inset
		pad := spec.Pad.ToMM()
		return Extent{
			Width:  spec.Width.ToMM() + 2*pad,
			Ascent: spec.Height.ToMM() + pad,
		}, nil
	}
	ext, err := b.ts.Measure(run.text, run.style.Face())
	if err != nil {
		return Extent{}, err
	}
	if run.style.Box != nil {
		pad := run.style.Box.Pad.ToMM()
		ext.Width += 2 * pad
	}
	return ext, nil
}

// wrapRuns splits a row's runs into lines no wider than wrapWidth using
// greedy wrapping: break at whitespace boundaries, and inside a token
// only when the token alone exceeds the limit.
func (b *builder) wrapRuns(runs []styledRun) ([][]styledRun, error) {
	limit := b.wrapWidth
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	type token struct {
		styledRun
		width float64
	}
	var tokens []token
	for _, run := range runs {
		if run.text == "" {
			ext, err := b.measureRun(run)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{styledRun: run, width: ext.Width})
			continue
		}
		for _, part := range tokenize(run.text) {
			ext, err := b.ts.Measure(part, run.style.Face())
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{
				styledRun: styledRun{text: part, style: run.style, highlight: run.highlight},
				width:     ext.Width,
			})
		}
	}

	var lines [][]styledRun
	var line []styledRun
	lineWidth := 0.0
	emit := func() {
		if len(line) == 0 {
			return
		}
		lines = append(lines, mergeRuns(line))
		line = nil
		lineWidth = 0
	}
	push := func(t token) {
		line = append(line, t.styledRun)
		lineWidth += t.width
	}

	for _, t := range tokens {
		if lineWidth > 0 && lineWidth+t.width > limit {
			emit()
		}
		if t.width <= limit || t.text == "" {
			push(t)
			continue
		}
		chunks, err := b.splitTokenByWidth(t.text, t.style, limit)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			ext, err := b.ts.Measure(c, t.style.Face())
			if err != nil {
				return nil, err
			}
			if lineWidth > 0 && lineWidth+ext.Width > limit {
				emit()
			}
			push(token{styledRun: styledRun{text: c, style: t.style, highlight: t.highlight}, width: ext.Width})
		}
	}
	emit()
	if len(lines) == 0 {
		lines = [][]styledRun{mergeRuns(runs)}
	}
	return lines, nil
}

// splitTokenByWidth cuts an oversize token into pieces that each fit
// the limit, measuring rune by rune.
func (b *builder) splitTokenByWidth(text string, style Style, limit float64) ([]string, error) {
	var parts []string
	var sb strings.Builder
	face := style.Face()
	for _, r := range text {
		sb.WriteRune(r)
		ext, err := b.ts.Measure(sb.String(), face)
		if err != nil {
			return nil, err
		}
		if ext.Width > limit && sb.Len() > 1 {
			runes := []rune(sb.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			sb.Reset()
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts, nil
}

// tokenize splits text into alternating whitespace and word runs.
func tokenize(s string) []string {
	var tokens []string
	var sb strings.Builder
	lastWasSpace := false
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		tokens = append(tokens, sb.String())
		sb.Reset()
	}
	for _, r := range s {
		isSpace := unicode.IsSpace(r)
		if sb.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		sb.WriteRune(r)
	}
	flush()
	return tokens
}

// mergeRuns joins adjacent runs that share a style slot, so wrapping
// does not fracture a span into per-token fragments.
func mergeRuns(runs []styledRun) []styledRun {
	var out []styledRun
	for _, run := range runs {
		if n := len(out); n > 0 && out[n-1].highlight == run.highlight &&
			(run.highlight >= 0 || sameBaseStyle(out[n-1].style, run.style)) &&
			!(run.text == "" && run.style.Inset != nil) {
			out[n-1].text += run.text
			continue
		}
		out = append(out, run)
	}
	return out
}

func sameBaseStyle(a, b Style) bool {
	return a.Font == b.Font && a.Color == b.Color && a.Weight == b.Weight &&
		a.Slant == b.Slant && a.Size == b.Size
}

// arrange applies the anchor point and the alignment parameters to the
// locally measured rows: rows stack downward with the configured gaps,
// the block shifts for VAlign, and each row shifts for HAlign.
func arrange(rows []PlacedRow, a Annotation, valign VAlign, halign HAlign) {
	total := 0.0
	for i := range rows {
		if i > 0 {
			rows[i].GapBefore = a.LineSpacing.Resolve(rows[i-1].Height)
			total += rows[i].GapBefore
		}
		total += rows[i].Height
	}

	top := a.Y
	switch valign {
	case VAlignBottom:
		top = a.Y - total
	case VAlignCenter:
		top = a.Y - total/2
	}

	cursor := top
	for i := range rows {
		cursor += rows[i].GapBefore
		rows[i].Y = cursor
		rows[i].Baseline += cursor

		shift := a.X
		switch halign {
		case HAlignCenter:
			shift = a.X - rows[i].Width/2
		case HAlignRight:
			shift = a.X - rows[i].Width
		}
		for j := range rows[i].Fragments {
			rows[i].Fragments[j].X += shift
			rows[i].Fragments[j].Y += cursor
		}
		cursor += rows[i].Height
	}
}

// makeInset computes the reserved child region for a fragment: empty
// inset fragments are replaced by the region entirely, fragments with
// text expose their own box shrunk by the inset padding.
func makeInset(frag Fragment) Inset {
	spec := frag.Style.Inset
	pad := spec.Pad.ToMM()
	r := frag.Bounds()
	if frag.Text == "" {
		r = Rect{
			X:      frag.X + pad,
			Y:      frag.Baseline() - spec.Height.ToMM(),
			Width:  spec.Width.ToMM(),
			Height: spec.Height.ToMM(),
		}
	} else {
		r = Rect{X: r.X + pad, Y: r.Y + pad, Width: r.Width - 2*pad, Height: r.Height - 2*pad}
	}
	return Inset{Highlight: frag.Highlight, Rect: r}
}
