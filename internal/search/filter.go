// Package search computes the filtered view of a dataset for a free-text
// query: case-insensitive substring containment over the searchable fields
// and tags of each item, with no ranking or tokenisation.
package search

import (
	"strings"

	"github.com/DeafMist/vizdesk/internal/models"
)

// View is the subset of a dataset matching a query.
type View struct {
	Query          string
	NewsArticles   []models.NewsArticle
	Visualizations []models.Visualization
}

// Empty reports whether the view has no items in the given collection.
func (v View) Empty(kind models.Kind) bool {
	if kind == models.KindVisualization {
		return len(v.Visualizations) == 0
	}
	return len(v.NewsArticles) == 0
}

// Normalize trims and lower-cases a raw query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Filter returns the items of ds matching query. A blank query returns a
// copy of both collections in their original order. ds is never modified.
func Filter(ds models.Dataset, query string) View {
	term := Normalize(query)
	view := View{Query: strings.TrimSpace(query)}
	if term == "" {
		clone := ds.Clone()
		view.NewsArticles = clone.NewsArticles
		view.Visualizations = clone.Visualizations
		return view
	}

	view.NewsArticles = make([]models.NewsArticle, 0, len(ds.NewsArticles))
	for _, article := range ds.NewsArticles {
		if MatchNews(article, term) {
			view.NewsArticles = append(view.NewsArticles, article)
		}
	}

	view.Visualizations = make([]models.Visualization, 0, len(ds.Visualizations))
	for _, viz := range ds.Visualizations {
		if MatchVisualization(viz, term) {
			view.Visualizations = append(view.Visualizations, viz)
		}
	}

	return view
}

// MatchNews reports whether an article matches an already normalised term.
func MatchNews(a models.NewsArticle, term string) bool {
	return matches(term, a.Tags, a.Title, a.Preview, a.Category)
}

// MatchVisualization reports whether a visualization matches an already
// normalised term.
func MatchVisualization(v models.Visualization, term string) bool {
	return matches(term, v.Tags, v.Title, v.Preview, v.Summary, v.Category)
}

func matches(term string, tags []string, fields ...string) bool {
	if term == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
