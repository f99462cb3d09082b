package render

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/view"
)

// Detail fallbacks and messages.
const (
	NotProvidedText  = "Not provided."
	NoInsightsText   = "No insights available."
	UnknownSource    = "Unknown source"
	NotFoundCrumb    = "Not found"
	closeGlyph       = "×"
	breadcrumbHome   = "Home"
	loadingLabelText = "Loading..."
)

// NotFoundText is shown when a lookup by id finds nothing.
func NotFoundText(kind models.Kind) string {
	if kind == models.KindNews {
		return "Sorry, we couldn't find that article."
	}
	return "Sorry, we couldn't find that visualization."
}

// UnavailableText is shown when the collection could not be loaded.
func UnavailableText(kind models.Kind) string {
	if kind == models.KindNews {
		return "News data is not available right now."
	}
	return "Visualization data is not available right now."
}

// DetailMessage renders a single message body, used for the not found and
// unavailable states.
func DetailMessage(text string) view.Fragment {
	return view.Fragment{Node: view.TextEl("p", "detail__message", text)}
}

// VisualizationDetail renders the modal body for a visualization.
func (r *Renderer) VisualizationDetail(v models.Visualization) view.Fragment {
	var frag view.Fragment
	body := view.El("div", "detail")

	preview := view.El("div", "detail__preview")
	if v.ImageURL != "" {
		view.Append(preview, r.image(&frag, "detail__image", v.ImageURL, altText(v)))
	} else {
		view.Append(preview, view.TextEl("div", "detail__preview-text", models.NoPreviewText))
	}

	desc := view.El("div", "detail__description")
	r.rich.Fill(desc, v.Description())

	var dc models.DetailContent
	if v.Detail != nil {
		dc = *v.Detail
	}

	methodology := view.El("div", "detail__methodology")
	if strings.TrimSpace(dc.Methodology) != "" {
		r.rich.Fill(methodology, dc.Methodology)
	} else {
		view.Append(methodology, view.TextEl("p", "", NotProvidedText))
	}

	insights := dc.KeyInsights
	if insights == nil {
		insights = models.Insights{NoInsightsText}
	}
	list := view.El("ul", "")
	for _, in := range insights {
		view.Append(list, view.TextEl("li", "", in))
	}

	sourceName := v.DataSource
	if sourceName == "" {
		sourceName = UnknownSource
	}
	sourceLine := view.El("p", "detail__source", view.TextEl("strong", "", sourceName))
	if v.PublishDate != "" {
		view.Append(sourceLine, view.Text(" - "+v.PublishDate))
	}

	view.Append(body,
		preview,
		view.TextEl("h2", "detail__title", v.DisplayTitle()),
		desc,
		section("Methodology", methodology),
		section("Key Insights", view.El("div", "detail__insights", list)),
		section("Data Source", sourceLine),
	)
	if len(dc.RelatedViz) > 0 {
		view.Append(body, section("Related", tags("detail__related", dc.RelatedViz)))
	}

	actions := view.El("div", "detail__actions",
		itemButton(&frag, "btn btn--primary", "Share", view.ActionShare, models.KindVisualization, v.ID),
		itemButton(&frag, "btn btn--secondary", "Bookmark", view.ActionBookmark, models.KindVisualization, v.ID),
		itemButton(&frag, "btn btn--outline", "Download", view.ActionDownload, models.KindVisualization, v.ID),
	)
	if v.ExternalLink != "" {
		view.Append(actions, externalLink(&frag, "btn btn--outline", v.ExternalLink, "Open Source Page"))
	}
	view.Append(body, actions)

	frag.Node = body
	return frag
}

// NewsDetail renders the modal body for a news article.
func (r *Renderer) NewsDetail(a models.NewsArticle) view.Fragment {
	var frag view.Fragment
	body := view.El("div", "detail")

	banner := "📰"
	if a.Category != "" {
		banner += " " + a.Category
	}

	meta := view.El("div", "news-card__meta")
	if a.Author != "" {
		view.Append(meta, view.TextEl("span", "news-card__author", "By "+a.Author))
	}
	for _, f := range []struct{ class, text string }{
		{"news-card__source", a.Source},
		{"news-card__date", a.Date},
		{"news-card__read-time", a.ReadTime},
	} {
		if f.text != "" {
			view.Append(meta, view.TextEl("span", f.class, f.text))
		}
	}

	desc := view.El("div", "detail__description")
	paragraphs := a.Paragraphs()
	if len(paragraphs) == 0 && a.Preview != "" {
		paragraphs = []string{a.Preview}
	}
	for _, p := range paragraphs {
		view.Append(desc, view.TextEl("p", "", p))
	}

	view.Append(body,
		view.El("div", "detail__preview", view.TextEl("div", "detail__preview-text", banner)),
		view.TextEl("h2", "detail__title", a.DisplayTitle()),
		meta,
		desc,
	)
	if len(a.Tags) > 0 {
		view.Append(body, section("Tags", tags("detail__related", a.Tags)))
	}

	actions := view.El("div", "detail__actions",
		itemButton(&frag, "btn btn--primary", "Share", view.ActionShare, models.KindNews, a.ID),
		itemButton(&frag, "btn btn--secondary", "Bookmark", view.ActionBookmark, models.KindNews, a.ID),
	)
	if a.ExternalLink != "" {
		view.Append(actions, externalLink(&frag, "btn btn--outline", a.ExternalLink, "Read More"))
	}
	view.Append(body, actions)

	frag.Node = body
	return frag
}

// ModalState is what the modal chrome shows.
type ModalState struct {
	Visible    bool
	Loading    bool
	Breadcrumb string
	Body       view.Fragment
}

// Modal renders the overlay, close controls, breadcrumb, loading
// indicator and body. Overlay, close button and breadcrumb home all close
// the modal.
func (r *Renderer) Modal(s ModalState) view.Fragment {
	var frag view.Fragment

	overlay := view.El("div", "modal__overlay")
	frag.Bind(view.Action{Kind: view.ActionCloseDetail, Target: overlay})

	closeBtn := view.Button("modal__close", closeGlyph)
	view.SetAttr(closeBtn, "aria-label", "Close")
	frag.Bind(view.Action{Kind: view.ActionCloseDetail, Target: closeBtn})

	home := view.Link("breadcrumb__home", "#", breadcrumbHome, false)
	frag.Bind(view.Action{Kind: view.ActionCloseDetail, Target: home})

	body := view.El("div", "modal__body")
	if s.Body.Node != nil {
		view.Append(body, s.Body.Node)
		frag.Merge(s.Body)
	}

	modal := view.El("div", "modal",
		overlay,
		view.El("div", "modal__content",
			closeBtn,
			view.El("nav", "breadcrumb",
				home,
				view.TextEl("span", "breadcrumb__sep", "/"),
				view.TextEl("span", "breadcrumb__current", s.Breadcrumb),
			),
			body,
		),
	)
	view.ToggleClass(modal, "hidden", !s.Visible)

	spinner := view.El("div", "loading-spinner", view.TextEl("span", "loading-spinner__label", loadingLabelText))
	view.ToggleClass(spinner, "hidden", !s.Loading)

	frag.Node = view.El("div", "modal-root", spinner, modal)
	return frag
}

func section(title string, content *html.Node) *html.Node {
	return view.El("div", "detail__section",
		view.TextEl("h3", "detail__section-title", title),
		content,
	)
}

func itemButton(frag *view.Fragment, class, label string, kind view.ActionKind, itemKind models.Kind, id models.ID) *html.Node {
	b := view.Button(class, label)
	frag.Bind(view.Action{Kind: kind, Target: b, ItemKind: itemKind, ItemID: id})
	return b
}
