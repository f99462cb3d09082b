package search_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/search"
)

func fixture() models.Dataset {
	return models.Dataset{
		NewsArticles: []models.NewsArticle{
			{Base: models.Base{ID: "1", Title: "Heatwave hits Europe", Preview: "Temperatures soar", Category: "Weather", Tags: []string{"Heat"}}},
			{Base: models.Base{ID: "2", Title: "Markets rally", Preview: "Stocks up", Category: "Finance", Tags: []string{"Economy"}}},
			{Base: models.Base{ID: "3", Title: "Untagged", Category: "Misc"}},
		},
		Visualizations: []models.Visualization{
			{Base: models.Base{ID: "v1", Title: "Emissions by country", Preview: "CO2 totals", Category: "Energy", Tags: []string{"Climate", "Policy"}}},
			{Base: models.Base{ID: "v2", Title: "GDP growth", Category: "Economy"}, Summary: "Quarterly output"},
			{Base: models.Base{ID: "v3", Title: "Rainfall", Category: "Weather", Tags: []string{"Water"}}},
		},
	}
}

func containsAny(term string, tags []string, fields ...string) bool {
	for _, f := range append(fields, tags...) {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func TestFilterBlankQueryReturnsEverythingInOrder(t *testing.T) {
	ds := fixture()
	for _, query := range []string{"", "   ", "\t\n"} {
		view := search.Filter(ds, query)
		require.Equal(t, ds.NewsArticles, view.NewsArticles)
		require.Equal(t, ds.Visualizations, view.Visualizations)
	}
}

func TestFilterIsSoundAndComplete(t *testing.T) {
	ds := fixture()
	queries := []string{"heat", "ECONOMY", "climate", "o", "weather", "quarterly", "zzz", " rain "}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			term := search.Normalize(query)
			view := search.Filter(ds, query)

			kept := map[models.ID]bool{}
			for _, a := range view.NewsArticles {
				kept[a.ID] = true
				require.True(t, containsAny(term, a.Tags, a.Title, a.Preview, a.Category))
			}
			for _, v := range view.Visualizations {
				kept[v.ID] = true
				require.True(t, containsAny(term, v.Tags, v.Title, v.Preview, v.Summary, v.Category))
			}
			for _, a := range ds.NewsArticles {
				if !kept[a.ID] {
					require.False(t, containsAny(term, a.Tags, a.Title, a.Preview, a.Category))
				}
			}
			for _, v := range ds.Visualizations {
				if !kept[v.ID] {
					require.False(t, containsAny(term, v.Tags, v.Title, v.Preview, v.Summary, v.Category))
				}
			}
		})
	}
}

func TestFilterMatchesTagsCaseInsensitively(t *testing.T) {
	view := search.Filter(fixture(), "climate")
	require.Len(t, view.Visualizations, 1)
	require.Equal(t, models.ID("v1"), view.Visualizations[0].ID)
	require.Empty(t, view.NewsArticles)
	require.True(t, view.Empty(models.KindNews))
	require.False(t, view.Empty(models.KindVisualization))
}

func TestFilterDoesNotMutateDataset(t *testing.T) {
	ds := fixture()
	before := ds.Clone()

	view := search.Filter(ds, "heat")
	require.Len(t, view.NewsArticles, 1)
	view.NewsArticles[0].Title = "changed"

	require.Equal(t, before, ds)
}

func TestFilterPreservesQueryText(t *testing.T) {
	view := search.Filter(fixture(), "  Rain ")
	require.Equal(t, "Rain", view.Query)
	require.Len(t, view.Visualizations, 1)
}
