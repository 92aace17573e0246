package markup_test

import (
	"strings"
	"testing"

	"github.com/hltx/hightext/markup"
)

func TestParseDocument(t *testing.T) {
	doc, err := markup.ParseString("The weather is <sunny> today.\nYesterday it <rained>.", markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(doc.Rows))
	}
	if doc.Highlights() != 2 {
		t.Fatalf("expected 2 highlights, got %d", doc.Highlights())
	}

	row := doc.Rows[0]
	if len(row.Chunks) != 3 {
		t.Fatalf("expected 3 chunks in first row, got %+v", row.Chunks)
	}
	if row.Chunks[0].Highlight || row.Chunks[0].Text != "The weather is " {
		t.Fatalf("unexpected leading chunk: %+v", row.Chunks[0])
	}
	if !row.Chunks[1].Highlight || row.Chunks[1].Text != "sunny" {
		t.Fatalf("unexpected highlight chunk: %+v", row.Chunks[1])
	}
	if row.Chunks[2].Text != " today." {
		t.Fatalf("unexpected trailing chunk: %+v", row.Chunks[2])
	}
}

func TestParseCustomDelimiters(t *testing.T) {
	doc, err := markup.ParseString("a {b} c", markup.Delimiters{Open: "{", Close: "}"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Highlights() != 1 {
		t.Fatalf("expected 1 highlight, got %d", doc.Highlights())
	}
	if doc.Rows[0].Chunks[1].Text != "b" {
		t.Fatalf("unexpected chunks: %+v", doc.Rows[0].Chunks)
	}
}

func TestParseMultiRuneDelimiters(t *testing.T) {
	doc, err := markup.ParseString("a [[b]] c", markup.Delimiters{Open: "[[", Close: "]]"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Highlights() != 1 || doc.Rows[0].Chunks[1].Text != "b" {
		t.Fatalf("unexpected chunks: %+v", doc.Rows[0].Chunks)
	}
}

func TestParseUnbalancedDelimiters(t *testing.T) {
	if _, err := markup.ParseString("never <closed", markup.Default); err == nil {
		t.Fatalf("expected error for missing close delimiter")
	}
	if _, err := markup.ParseString("stray> close", markup.Default); err == nil {
		t.Fatalf("expected error for stray close delimiter")
	}
}

func TestParseHighlightAcrossLinebreak(t *testing.T) {
	if _, err := markup.ParseString("a <b\nc> d", markup.Default); err == nil {
		t.Fatalf("expected error for highlight spanning a linebreak")
	}
}

func TestParseEmptyHighlight(t *testing.T) {
	doc, err := markup.ParseString("a <> b", markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Highlights() != 1 {
		t.Fatalf("empty highlight should count, got %d", doc.Highlights())
	}
	if doc.Rows[0].Chunks[1].Text != "" || !doc.Rows[0].Chunks[1].Highlight {
		t.Fatalf("unexpected chunks: %+v", doc.Rows[0].Chunks)
	}
}

func TestBlankRows(t *testing.T) {
	doc, err := markup.ParseString("\n  \nfoo\n\nbar", markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(doc.Rows))
	}
	want := []bool{true, true, false, true, false}
	for i, blank := range want {
		if doc.Rows[i].Blank() != blank {
			t.Fatalf("row %d Blank() = %v, want %v", i, doc.Rows[i].Blank(), blank)
		}
	}
}

func TestBlankTreatsHighlightAsContent(t *testing.T) {
	doc, err := markup.ParseString("< >", markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Rows[0].Blank() {
		t.Fatalf("highlighted whitespace should not be blank")
	}
}

func TestCRLFNormalized(t *testing.T) {
	doc, err := markup.ParseString("a\r\nb", markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(doc.Rows))
	}
}

func TestParseReader(t *testing.T) {
	doc, err := markup.Parse(strings.NewReader("x <y>"), markup.Default)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Highlights() != 1 {
		t.Fatalf("expected 1 highlight, got %d", doc.Highlights())
	}
}

func TestDelimiterValidation(t *testing.T) {
	cases := []markup.Delimiters{
		{Open: "", Close: ">"},
		{Open: "<", Close: ""},
		{Open: "|", Close: "|"},
		{Open: "<\n", Close: ">"},
	}
	for _, d := range cases {
		if _, err := markup.ParseString("x", d); err == nil {
			t.Fatalf("expected validation error for %+v", d)
		}
	}
}
