package layout

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hltx/hightext/markup"
)

// stubTypesetter measures with fixed per-rune geometry so tests do not
// depend on a font backend: each rune is 0.6em wide, ascent is 0.8em,
// descent 0.2em.
type stubTypesetter struct{}

func (stubTypesetter) Measure(text string, face Face) (Extent, error) {
	em := face.SizePt * PtToMm
	return Extent{
		Width:   0.6 * em * float64(utf8.RuneCountInString(text)),
		Ascent:  0.8 * em,
		Descent: 0.2 * em,
	}, nil
}

// charWidth returns the stub width of one rune at the default 12pt.
func charWidth() float64 { return 0.6 * 12 * PtToMm }

func build(t *testing.T, a Annotation) *Result {
	t.Helper()
	res, err := Build(a, BuildOptions{Typesetter: stubTypesetter{}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return res
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuildRequiresTypesetter(t *testing.T) {
	if _, err := Build(Annotation{Text: "x"}, BuildOptions{}); err == nil {
		t.Fatalf("expected error without typesetter")
	}
}

func TestBuildRowsAndHighlights(t *testing.T) {
	res := build(t, Annotation{
		Text:       "The weather is <sunny> today.\nYesterday it <rained>.",
		Highlights: []Style{{Color: "#ffcc00"}, {Color: "#888888", Weight: "bold"}},
	})
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	frags := res.Rows[0].Fragments
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments in first row, got %d", len(frags))
	}
	if frags[0].Highlight != -1 || frags[1].Highlight != 0 || frags[2].Highlight != -1 {
		t.Fatalf("unexpected highlight indices: %+v", frags)
	}
	if frags[1].Style.Color != "#ffcc00" {
		t.Fatalf("first highlight style not applied: %+v", frags[1].Style)
	}
	second := res.Rows[1].Fragments[1]
	if second.Highlight != 1 || second.Style.Weight != "bold" {
		t.Fatalf("second highlight style not applied: %+v", second)
	}
}

func TestSingleHighlightStyleRepeats(t *testing.T) {
	res := build(t, Annotation{
		Text:       "<a> and <b> and <c>",
		Highlights: []Style{{Color: "#ff0000"}},
	})
	count := 0
	for _, frag := range res.Fragments() {
		if frag.Highlight >= 0 {
			count++
			if frag.Style.Color != "#ff0000" {
				t.Fatalf("highlight %d missing repeated style: %+v", frag.Highlight, frag.Style)
			}
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 highlight fragments, got %d", count)
	}
}

func TestHighlightStyleCountMismatch(t *testing.T) {
	_, err := Build(Annotation{
		Text:       "<a> <b>",
		Highlights: []Style{{}, {}, {}},
	}, BuildOptions{Typesetter: stubTypesetter{}})
	if err == nil {
		t.Fatalf("expected count mismatch error")
	}
	if !strings.Contains(err.Error(), "2 highlights") || !strings.Contains(err.Error(), "3 styles") {
		t.Fatalf("error should name both counts: %v", err)
	}
}

func TestFragmentsShareRowBaseline(t *testing.T) {
	res := build(t, Annotation{
		Text:       "small <BIG> small",
		Highlights: []Style{{Size: Pt(24)}},
	})
	row := res.Rows[0]
	bigEm := 24 * PtToMm
	if !approx(row.Height, bigEm) {
		t.Fatalf("row height should come from tallest fragment: got=%g want=%g", row.Height, bigEm)
	}
	for i, frag := range row.Fragments {
		if !approx(frag.Baseline(), row.Baseline) {
			t.Fatalf("fragment %d off baseline: got=%g want=%g", i, frag.Baseline(), row.Baseline)
		}
	}
}

func TestHorizontalPacking(t *testing.T) {
	hpad := 2.0
	res := build(t, Annotation{
		Text: "ab <cd>",
		HPad: Mm(hpad),
	})
	frags := res.Rows[0].Fragments
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	wantX := frags[0].X + frags[0].Width + hpad
	if !approx(frags[1].X, wantX) {
		t.Fatalf("second fragment x: got=%g want=%g", frags[1].X, wantX)
	}
	wantWidth := frags[0].Width + hpad + frags[1].Width
	if !approx(res.Rows[0].Width, wantWidth) {
		t.Fatalf("row width: got=%g want=%g", res.Rows[0].Width, wantWidth)
	}
}

func TestVerticalAlignment(t *testing.T) {
	a := Annotation{Text: "one\ntwo", Y: 100}

	bottom := build(t, withVAlign(a, VAlignBottom))
	if !approx(bottom.Bounds.MaxY(), 100) {
		t.Fatalf("bottom: block should end at anchor, maxY=%g", bottom.Bounds.MaxY())
	}
	top := build(t, withVAlign(a, VAlignTop))
	if !approx(top.Bounds.Y, 100) {
		t.Fatalf("top: block should start at anchor, y=%g", top.Bounds.Y)
	}
	center := build(t, withVAlign(a, VAlignCenter))
	mid := center.Bounds.Y + center.Bounds.Height/2
	if !approx(mid, 100) {
		t.Fatalf("center: block middle should sit at anchor, mid=%g", mid)
	}
}

func withVAlign(a Annotation, v VAlign) Annotation {
	a.VAlign = v
	return a
}

func TestHorizontalAlignmentPerRow(t *testing.T) {
	a := Annotation{Text: "wide wide wide\nnarrow", X: 50, HAlign: HAlignRight}
	res := build(t, a)
	for i, row := range res.Rows {
		last := row.Fragments[len(row.Fragments)-1]
		if !approx(last.X+last.Width, 50) {
			t.Fatalf("row %d right edge: got=%g want=50", i, last.X+last.Width)
		}
	}

	a.HAlign = HAlignCenter
	res = build(t, a)
	for i, row := range res.Rows {
		first := row.Fragments[0]
		mid := first.X + row.Width/2
		if !approx(mid, 50) {
			t.Fatalf("row %d center: got=%g want=50", i, mid)
		}
	}
}

func TestLineSpacingDefaultFactor(t *testing.T) {
	res := build(t, Annotation{Text: "a\nb"})
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	want := res.Rows[0].Height * DefaultLineSpacing
	if !approx(res.Rows[1].GapBefore, want) {
		t.Fatalf("default gap: got=%g want=%g", res.Rows[1].GapBefore, want)
	}
	gap := res.Rows[1].Y - (res.Rows[0].Y + res.Rows[0].Height)
	if !approx(gap, want) {
		t.Fatalf("geometric gap: got=%g want=%g", gap, want)
	}
}

func TestLineSpacingAbsolute(t *testing.T) {
	res := build(t, Annotation{Text: "a\nb", LineSpacing: Absolute(Mm(7))})
	if !approx(res.Rows[1].GapBefore, 7) {
		t.Fatalf("absolute gap: got=%g want=7", res.Rows[1].GapBefore)
	}
}

func TestBlankRowAdvancesCursor(t *testing.T) {
	res := build(t, Annotation{Text: "a\n\nb"})
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}
	blank := res.Rows[1]
	if len(blank.Fragments) != 0 {
		t.Fatalf("blank row should have no fragments: %+v", blank.Fragments)
	}
	if blank.Height <= 0 {
		t.Fatalf("blank row should keep line height, got %g", blank.Height)
	}
}

func TestLeadingBlankRowsDropped(t *testing.T) {
	res := build(t, Annotation{Text: "\n  \nfirst"})
	if len(res.Rows) != 1 {
		t.Fatalf("expected leading blanks to be dropped, got %d rows", len(res.Rows))
	}
	if res.Rows[0].Fragments[0].Text != "first" {
		t.Fatalf("unexpected first fragment: %+v", res.Rows[0].Fragments[0])
	}
}

func TestEmptyTextIsError(t *testing.T) {
	if _, err := Build(Annotation{Text: " \n "}, BuildOptions{Typesetter: stubTypesetter{}}); err == nil {
		t.Fatalf("expected error for blank-only text")
	}
}

func TestEmptyHighlightConsumesStyleSlot(t *testing.T) {
	res := build(t, Annotation{
		Text:       "a <> b <x>",
		Highlights: []Style{{Color: "#111111"}, {Color: "#222222"}},
	})
	frags := res.Rows[0].Fragments
	if len(frags) != 3 {
		t.Fatalf("empty highlight should not produce a fragment: %+v", frags)
	}
	last := frags[2]
	if last.Highlight != 1 || last.Style.Color != "#222222" {
		t.Fatalf("second highlight should use second style: %+v", last)
	}
}

func TestWrapGreedy(t *testing.T) {
	limit := 4.5 * charWidth()
	res := build(t, Annotation{Text: "aaa bbb ccc", WrapWidth: limit})
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 wrapped rows, got %d", len(res.Rows))
	}
	for i, row := range res.Rows {
		if row.Width-limit > 1e-6 {
			t.Fatalf("row %d exceeds wrap width: %g > %g", i, row.Width, limit)
		}
	}
}

func TestWrapPreservesHighlightSpans(t *testing.T) {
	limit := 4.5 * charWidth()
	res := build(t, Annotation{
		Text:       "aaa <bbb ccc>",
		Highlights: []Style{{Color: "#ff0000"}},
		WrapWidth:  limit,
	})
	if len(res.Rows) < 2 {
		t.Fatalf("expected the highlight to wrap, got %d rows", len(res.Rows))
	}
	seen := 0
	for _, frag := range res.Fragments() {
		if frag.Highlight == 0 {
			seen++
			if frag.Style.Color != "#ff0000" {
				t.Fatalf("wrapped highlight lost its style: %+v", frag)
			}
		}
	}
	if seen < 2 {
		t.Fatalf("highlight should span multiple fragments after wrap, got %d", seen)
	}
}

func TestWrapSplitsOversizeToken(t *testing.T) {
	limit := 4 * charWidth()
	res := build(t, Annotation{Text: "aaaaaaaaaa", WrapWidth: limit})
	if len(res.Rows) < 2 {
		t.Fatalf("oversize token should split, got %d rows", len(res.Rows))
	}
	for i, row := range res.Rows {
		if row.Width-limit > 1e-6 {
			t.Fatalf("row %d exceeds wrap width: %g > %g", i, row.Width, limit)
		}
	}
}

func TestInsetReservedForEmptyHighlight(t *testing.T) {
	res := build(t, Annotation{
		Text:       "before <> after",
		Highlights: []Style{{Inset: &InsetSpec{Width: Mm(10), Height: Mm(8), Pad: Mm(1)}}},
	})
	if len(res.Insets) != 1 {
		t.Fatalf("expected 1 inset, got %d", len(res.Insets))
	}
	ins := res.Insets[0]
	if ins.Highlight != 0 {
		t.Fatalf("inset should anchor to highlight 0: %+v", ins)
	}
	if !approx(ins.Rect.Width, 10) || !approx(ins.Rect.Height, 8) {
		t.Fatalf("inset rect size: %+v", ins.Rect)
	}
	var anchor *Fragment
	for _, frag := range res.Fragments() {
		if frag.Highlight == 0 {
			f := frag
			anchor = &f
		}
	}
	if anchor == nil {
		t.Fatalf("inset fragment missing from layout")
	}
	if !approx(anchor.Width, 12) {
		t.Fatalf("inset fragment width should include padding: got=%g want=12", anchor.Width)
	}
	if !approx(ins.Rect.MaxY(), anchor.Baseline()) {
		t.Fatalf("inset should sit on the baseline: rect=%+v baseline=%g", ins.Rect, anchor.Baseline())
	}
}

func TestBoundsEncloseFragments(t *testing.T) {
	res := build(t, Annotation{Text: "one <two>\nthree", X: 30, Y: 60})
	for _, frag := range res.Fragments() {
		b := frag.Bounds()
		if b.X < res.Bounds.X-1e-6 || b.Y < res.Bounds.Y-1e-6 ||
			b.MaxX() > res.Bounds.MaxX()+1e-6 || b.MaxY() > res.Bounds.MaxY()+1e-6 {
			t.Fatalf("fragment %+v outside bounds %+v", b, res.Bounds)
		}
	}
}

func TestCustomDelimitersInBuild(t *testing.T) {
	res := build(t, Annotation{
		Text:  "x {y} z",
		Delim: markup.Delimiters{Open: "{", Close: "}"},
	})
	found := false
	for _, frag := range res.Fragments() {
		if frag.Highlight == 0 && frag.Text == "y" {
			found = true
		}
	}
	if !found {
		t.Fatalf("custom delimiter highlight missing: %+v", res.Fragments())
	}
}

func TestWriteDebugJSON(t *testing.T) {
	res := build(t, Annotation{Text: "a <b>"})
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteDebugJSON(res, path); err != nil {
		t.Fatalf("writing debug JSON failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading debug JSON failed: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("debug JSON does not decode: %v", err)
	}
	if len(decoded.Rows) != len(res.Rows) {
		t.Fatalf("round trip lost rows: %d vs %d", len(decoded.Rows), len(res.Rows))
	}
}

func TestInvalidAlignment(t *testing.T) {
	if _, err := Build(Annotation{Text: "x", VAlign: "sideways"}, BuildOptions{Typesetter: stubTypesetter{}}); err == nil {
		t.Fatalf("expected error for bad valign")
	}
	if _, err := Build(Annotation{Text: "x", HAlign: "diagonal"}, BuildOptions{Typesetter: stubTypesetter{}}); err == nil {
		t.Fatalf("expected error for bad halign")
	}
}
