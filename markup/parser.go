package markup

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Delimiters encloses the substrings that receive highlight styles.
type Delimiters struct {
	Open  string
	Close string
}

// Default is the delimiter pair used when the caller specifies none.
var Default = Delimiters{Open: "<", Close: ">"}

func (d Delimiters) validate() error {
	if d.Open == "" || d.Close == "" {
		return fmt.Errorf("markup: delimiters must be non-empty, got open=%q close=%q", d.Open, d.Close)
	}
	if d.Open == d.Close {
		return fmt.Errorf("markup: open and close delimiters must differ, got %q", d.Open)
	}
	if strings.ContainsRune(d.Open, '\n') || strings.ContainsRune(d.Close, '\n') {
		return fmt.Errorf("markup: delimiters must not contain linebreaks")
	}
	return nil
}

// Chunk is a run of text within a row, either plain or highlighted.
type Chunk struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Row is one linebreak-separated line of the input.
type Row struct {
	Chunks []Chunk `json:"chunks"`
}

// Blank reports whether the row carries no drawable content. Highlighted
// chunks always count as content, even when they hold only spaces.
func (r Row) Blank() bool {
	for _, c := range r.Chunks {
		if c.Highlight {
			return false
		}
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

// Document is the parsed form of an annotation string.
type Document struct {
	Rows []Row `json:"rows"`
}

// Highlights returns the number of highlighted chunks across all rows.
func (doc *Document) Highlights() int {
	n := 0
	for _, row := range doc.Rows {
		for _, c := range row.Chunks {
			if c.Highlight {
				n++
			}
		}
	}
	return n
}

// grammar AST; flattened into Document after parsing.
type document struct {
	Segments []*segment `parser:"@@*"`
}

type segment struct {
	Newline   bool       `parser:"  @Newline"`
	Highlight *highlight `parser:"| @@"`
	Text      string     `parser:"| @Text"`
}

type highlight struct {
	Text string `parser:"Open @Text? Close"`
}

var (
	parserMu sync.Mutex
	parsers  = map[Delimiters]*participle.Parser[document]{}
)

// parserFor builds (or returns a cached) parser for the delimiter pair.
// The lexer reserves every rune of both delimiters, so a stray delimiter
// character in plain text is a parse error rather than silent content.
func parserFor(d Delimiters) (*participle.Parser[document], error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	parserMu.Lock()
	defer parserMu.Unlock()
	if p, ok := parsers[d]; ok {
		return p, nil
	}

	def, err := lexer.NewSimple([]lexer.SimpleRule{
		{Name: "Open", Pattern: regexp.QuoteMeta(d.Open)},
		{Name: "Close", Pattern: regexp.QuoteMeta(d.Close)},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Text", Pattern: `[^` + charClass(d.Open+d.Close) + `\n]+`},
	})
	if err != nil {
		return nil, fmt.Errorf("markup: building lexer for %q %q: %w", d.Open, d.Close, err)
	}
	p, err := participle.Build[document](participle.Lexer(def))
	if err != nil {
		return nil, fmt.Errorf("markup: building parser for %q %q: %w", d.Open, d.Close, err)
	}
	parsers[d] = p
	return p, nil
}

// charClass escapes s for use inside a regexp character class.
func charClass(s string) string {
	var b strings.Builder
	seen := map[rune]bool{}
	for _, r := range s {
		if seen[r] {
			continue
		}
		seen[r] = true
		switch r {
		case '^', ']', '\\', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Parse reads annotation text from r and splits it into rows and
// highlight chunks according to the delimiter pair.
func Parse(r io.Reader, d Delimiters) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data), d)
}

// ParseString parses annotation text. An unbalanced delimiter, or a
// highlight spanning a linebreak, is an error.
func ParseString(input string, d Delimiters) (*Document, error) {
	p, err := parserFor(d)
	if err != nil {
		return nil, err
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	ast, err := p.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("markup: %w", err)
	}
	return flatten(ast), nil
}

func flatten(ast *document) *Document {
	doc := &Document{Rows: []Row{{}}}
	cur := 0
	for _, seg := range ast.Segments {
		switch {
		case seg.Newline:
			doc.Rows = append(doc.Rows, Row{})
			cur++
		case seg.Highlight != nil:
			doc.Rows[cur].Chunks = append(doc.Rows[cur].Chunks, Chunk{Text: seg.Highlight.Text, Highlight: true})
		default:
			doc.Rows[cur].Chunks = append(doc.Rows[cur].Chunks, Chunk{Text: seg.Text})
		}
	}
	return doc
}
