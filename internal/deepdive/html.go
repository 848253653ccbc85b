package deepdive

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML escapes the characters that would otherwise be read as markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// RenderHTML renders headings as <h3> and paragraphs as <p> with <code> spans.
// All text is escaped before it is wrapped in tags.
func RenderHTML(d Document) string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		switch b.Kind {
		case Heading:
			sb.WriteString("<h3>")
			sb.WriteString(EscapeHTML(b.Text))
			sb.WriteString("</h3>")
		case Paragraph:
			sb.WriteString("<p>")
			for _, sp := range b.Spans {
				if sp.Kind == Code {
					sb.WriteString("<code>")
					sb.WriteString(EscapeHTML(sp.Content))
					sb.WriteString("</code>")
					continue
				}
				sb.WriteString(EscapeHTML(sp.Content))
			}
			sb.WriteString("</p>")
		}
	}
	return sb.String()
}
