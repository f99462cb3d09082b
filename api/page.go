package main

import (
	"net/http"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/view"
)

const siteTitle = "VizDesk"

// document wraps body nodes in a full HTML page.
func document(title string, body ...*html.Node) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	charset := view.El("meta", "")
	view.SetAttr(charset, "charset", "utf-8")
	viewport := view.El("meta", "")
	view.SetAttr(viewport, "name", "viewport")
	view.SetAttr(viewport, "content", "width=device-width, initial-scale=1")

	if title == "" {
		title = siteTitle
	} else {
		title += " · " + siteTitle
	}

	root := view.El("html", "",
		view.El("head", "", charset, viewport, view.TextEl("title", "", title)),
		view.El("body", "", body...),
	)
	view.SetAttr(root, "lang", "en")
	doc.AppendChild(root)
	return doc
}

func header(query string) *html.Node {
	home := view.Link("site-title", "/", siteTitle, false)

	input := view.El("input", "search-input")
	view.SetAttr(input, "type", "search")
	view.SetAttr(input, "name", "q")
	view.SetAttr(input, "placeholder", "Search news and visualizations")
	view.SetAttr(input, "value", query)

	form := view.El("form", "search-form", input, view.TextEl("button", "btn btn--primary", "Search"))
	view.SetAttr(form, "action", "/")
	view.SetAttr(form, "method", "get")

	return view.El("header", "site-header", home, form)
}

func sectionWithID(id, title string, children ...*html.Node) *html.Node {
	s := view.El("section", "page-section", view.TextEl("h2", "page-section__title", title))
	view.Append(s, children...)
	view.SetAttr(s, "id", id)
	return s
}

func writePage(w http.ResponseWriter, status int, doc *html.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = view.Render(w, doc)
}
