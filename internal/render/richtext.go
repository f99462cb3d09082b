package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/DeafMist/vizdesk/internal/view"
)

// richText turns Markdown into nodes. goldmark runs with its default safe
// renderer, so raw HTML in the source is dropped instead of injected.
type richText struct {
	md goldmark.Markdown
}

func newRichText() *richText {
	return &richText{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Fill converts source into parent's children. It falls back to a single
// paragraph of plain text if conversion fails.
func (r *richText) Fill(parent *html.Node, source string) {
	if strings.TrimSpace(source) == "" {
		return
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		view.Append(parent, view.TextEl("p", "", source))
		return
	}

	holder := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(&buf, holder)
	if err != nil {
		view.Append(parent, view.TextEl("p", "", source))
		return
	}
	view.Append(parent, nodes...)
}
