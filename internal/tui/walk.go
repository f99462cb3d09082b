package tui

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/view"
)

var (
	spaceRun = regexp.MustCompile(`[ \t\r\n]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// blockTags start and end on their own line.
var blockTags = map[string]bool{
	"div": true, "p": true, "section": true, "nav": true, "header": true,
	"main": true, "ul": true, "ol": true, "li": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true,
}

// walker flattens a rendered fragment into styled terminal text. Images
// become their alt text, buttons a bracketed label, and anything hidden
// is left out.
type walker struct {
	st Styles
}

func (w walker) render(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	w.walk(&b, n)
	return tidy(b.String())
}

func (w walker) walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
	case html.DocumentNode:
		w.children(b, n)
		return
	default:
		return
	}

	if view.HasClass(n, "hidden") {
		return
	}
	switch n.Data {
	case "script", "style", "head", "title":
		return
	case "br":
		b.WriteString("\n")
		return
	case "img":
		alt := strings.TrimSpace(view.Attr(n, "alt"))
		if alt == "" {
			alt = "image"
		}
		b.WriteString(w.st.Faint.Render("[image: " + alt + "]"))
		return
	}

	var inner strings.Builder
	w.children(&inner, n)
	text := strings.TrimSpace(inner.String())

	switch {
	case n.Data == "button" || (n.Data == "a" && view.HasClass(n, "btn")):
		if text != "" {
			b.WriteString(" " + w.st.Button.Render("["+text+"]") + " ")
		}
	case n.Data == "a":
		b.WriteString(w.st.Link.Render(text))
	case n.Data == "span" && view.HasClass(n, "tag"):
		b.WriteString(w.st.Tag.Render("#"+text) + " ")
	case n.Data == "li":
		b.WriteString("\n• " + text + "\n")
	case n.Data == "strong" || n.Data == "b":
		b.WriteString(w.st.Title.Render(text))
	case n.Data == "pre":
		b.WriteString("\n" + w.st.Faint.Render(view.TextContent(n)) + "\n")
	case blockTags[n.Data]:
		if text == "" {
			return
		}
		b.WriteString("\n" + w.block(n, text) + "\n")
	default:
		b.WriteString(inner.String())
	}
}

func (w walker) children(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(b, c)
	}
}

// block styles a block element by what it is.
func (w walker) block(n *html.Node, text string) string {
	switch {
	case view.HasClass(n, "selected"):
		return w.st.Selected.Render(text)
	case view.HasClass(n, "active"):
		return w.st.Active.Render(text)
	case view.HasClass(n, "grid-error"):
		return w.st.Error.Render(text)
	case strings.HasPrefix(n.Data, "h"):
		return w.st.Title.Render(text)
	case view.HasClass(n, "no-search-results"), view.HasClass(n, "gallery-empty"), view.HasClass(n, "empty"):
		return w.st.Faint.Render(text)
	}
	return text
}

// tidy trims trailing blanks and collapses runs of empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n")
}
