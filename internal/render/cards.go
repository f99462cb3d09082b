package render

import (
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/search"
	"github.com/DeafMist/vizdesk/internal/view"
)

// Inline error messages shown in place of a grid whose load failed.
const (
	NewsLoadError          = "Error: Could not load news articles."
	VisualizationLoadError = "Error: Could not load visualizations."
)

// NewsCard renders one article.
func (r *Renderer) NewsCard(a models.NewsArticle) view.Fragment {
	var frag view.Fragment

	header := view.El("div", "news-card__header",
		view.TextEl("span", "news-card__source", a.Source),
		view.TextEl("span", "news-card__date", a.Date),
	)

	preview := a.Preview
	if preview == "" {
		preview = models.NoPreviewText
	}

	meta := view.El("div", "news-card__meta")
	if a.Author != "" {
		view.Append(meta, view.TextEl("span", "news-card__author", "By "+a.Author))
	}
	if a.ReadTime != "" {
		view.Append(meta, view.TextEl("span", "news-card__read-time", a.ReadTime))
	}

	actions := view.El("div", "news-card__actions")
	if a.ExternalLink != "" {
		view.Append(actions, externalLink(&frag, "btn btn--primary", a.ExternalLink, "Read More"))
	}
	view.Append(actions, r.detailButton(&frag, "btn btn--outline", models.KindNews, a.ID))

	card := view.El("div", "news-card",
		header,
		view.TextEl("h3", "news-card__title", a.DisplayTitle()),
		view.TextEl("p", "news-card__preview", preview),
		meta,
		tags("news-card__tags", a.Tags),
		actions,
	)
	view.SetAttr(card, "data-id", string(a.ID))
	frag.Node = card
	return frag
}

// VisualizationCard renders one visualization. Without an image the
// preview area holds a "No preview" text node and no image element.
func (r *Renderer) VisualizationCard(v models.Visualization) view.Fragment {
	var frag view.Fragment

	src := v.ImageURL
	if src == "" {
		src = v.Thumb400
	}

	preview := view.El("div", "viz-card__preview")
	if src != "" {
		view.Append(preview, r.image(&frag, "viz-card__image", src, altText(v)))
	} else {
		view.Append(preview, view.TextEl("div", "viz-card__preview-text", models.NoPreviewText))
	}

	description := v.Preview
	if description == "" {
		description = v.Summary
	}

	actions := view.El("div", "viz-card__actions")
	if v.ImageURL != "" {
		view.Append(actions, externalLink(&frag, "btn btn--sm btn--outline", v.ImageURL, "View Image"))
	}
	view.Append(actions, r.detailButton(&frag, "btn btn--sm btn--primary", models.KindVisualization, v.ID))
	if v.ExternalLink != "" {
		view.Append(actions, externalLink(&frag, "btn btn--sm btn--outline", v.ExternalLink, "Open Source"))
	}

	content := view.El("div", "viz-card__content",
		view.TextEl("h3", "viz-card__title", v.DisplayTitle()),
		view.TextEl("p", "viz-card__description", description),
		view.El("div", "viz-card__meta", view.TextEl("span", "viz-card__category", v.Category)),
		actions,
	)

	card := view.El("div", "viz-card", preview, content)
	view.SetAttr(card, "data-id", string(v.ID))
	frag.Node = card
	return frag
}

// GridState carries what a grid needs beyond its items.
type GridState struct {
	Query  string
	Failed bool
}

// NewsGrid renders the news container for a filtered view.
func (r *Renderer) NewsGrid(v search.View, failed bool) view.Fragment {
	cards := make([]view.Fragment, 0, len(v.NewsArticles))
	for _, a := range v.NewsArticles {
		cards = append(cards, r.NewsCard(a))
	}
	return r.grid("news-grid", NewsLoadError, cards, GridState{Query: v.Query, Failed: failed})
}

// VisualizationGrid renders the visualization container for a filtered view.
func (r *Renderer) VisualizationGrid(v search.View, failed bool) view.Fragment {
	cards := make([]view.Fragment, 0, len(v.Visualizations))
	for _, viz := range v.Visualizations {
		cards = append(cards, r.VisualizationCard(viz))
	}
	return r.grid("visualization-grid", VisualizationLoadError, cards, GridState{Query: v.Query, Failed: failed})
}

// grid wraps cards in a container. A failed load replaces the cards with
// the inline error; an empty result under a query adds a no-results
// message right after the container.
func (r *Renderer) grid(class, loadError string, cards []view.Fragment, state GridState) view.Fragment {
	var frag view.Fragment
	container := view.El("div", class)
	section := view.El("div", "grid-section", container)

	switch {
	case state.Failed:
		view.Append(container, view.TextEl("p", "grid-error", loadError))
	default:
		for _, card := range cards {
			view.Append(container, card.Node)
		}
		frag.Merge(cards...)
		if len(cards) == 0 && state.Query != "" {
			view.Append(section, view.TextEl("div", "no-search-results", NoResultsText(state.Query)))
		}
	}

	frag.Node = section
	return frag
}

// NoResultsText is the sentinel shown next to an empty container.
func NoResultsText(query string) string {
	return `No results for "` + query + `"`
}

func altText(v models.Visualization) string {
	if v.Title != "" {
		return v.Title
	}
	return "Visualization"
}
