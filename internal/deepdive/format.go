// Package deepdive turns the loosely structured deep-dive text shipped with
// each language into a small document model of headings and paragraphs with
// inline code spans.
//
// Formatting is total: any input yields a document, and malformed input
// degrades to plain paragraphs. Span content is raw text; escaping for a
// markup target happens in RenderHTML or in the caller's own renderer.
package deepdive

import (
	"strings"
	"unicode/utf8"
)

// BlockKind tags a Block as a heading or a paragraph.
type BlockKind string

const (
	Heading   BlockKind = "heading"
	Paragraph BlockKind = "paragraph"
)

// SpanKind tags an inline span as plain text or code.
type SpanKind string

const (
	Text SpanKind = "text"
	Code SpanKind = "code"
)

// Span is a run of paragraph content.
type Span struct {
	Kind    SpanKind `json:"kind"`
	Content string   `json:"content"`
}

// Block is a heading (Text set) or a paragraph (Spans set).
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Spans []Span    `json:"spans,omitempty"`
}

// Document is the ordered list of blocks derived from deep-dive text.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// maxHeadingLen bounds the trimmed length (in characters) of a heading line.
const maxHeadingLen = 80

// Format converts plain text into a Document. It never fails.
func Format(text string) Document {
	doc := Document{Blocks: []Block{}}
	var para []string

	flush := func() {
		if len(para) == 0 {
			return
		}
		doc.Blocks = append(doc.Blocks, Block{Kind: Paragraph, Spans: inline(strings.Join(para, " "))})
		para = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if isHeading(line) {
			flush()
			doc.Blocks = append(doc.Blocks, Block{Kind: Heading, Text: line})
			continue
		}
		para = append(para, line)
	}
	flush()
	return doc
}

// isHeading reports whether a trimmed line opens with a run of heading
// characters terminated by a colon, e.g. "THE ELF FORMAT:" or "WHY XOR?:".
func isHeading(line string) bool {
	if utf8.RuneCountInString(line) >= maxHeadingLen {
		return false
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == ':' {
			return i > 0
		}
		if !isHeadingChar(c) {
			return false
		}
	}
	return false
}

func isHeadingChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case ' ', '_', '-', '(', ')', '?':
		return true
	}
	return false
}

// inline splits paragraph content into text and code spans. A code span is a
// non-empty run between two backticks; a backtick without a partner, or an
// empty pair, stays literal.
func inline(s string) []Span {
	var spans []Span
	var text strings.Builder

	for i := 0; i < len(s); {
		if s[i] != '`' {
			text.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '`')
		if end <= 0 {
			text.WriteByte('`')
			i++
			continue
		}
		if text.Len() > 0 {
			spans = append(spans, Span{Kind: Text, Content: text.String()})
			text.Reset()
		}
		spans = append(spans, Span{Kind: Code, Content: s[i+1 : i+1+end]})
		i += end + 2
	}
	if text.Len() > 0 {
		spans = append(spans, Span{Kind: Text, Content: text.String()})
	}
	return spans
}

// PlainText returns the document with formatting stripped: heading text and
// concatenated paragraph spans, one block per line.
func (d Document) PlainText() string {
	lines := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Kind == Heading {
			lines = append(lines, b.Text)
			continue
		}
		var sb strings.Builder
		for _, sp := range b.Spans {
			sb.WriteString(sp.Content)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = b
		if b.Spans != nil {
			out.Blocks[i].Spans = append([]Span(nil), b.Spans...)
		}
	}
	return out
}
