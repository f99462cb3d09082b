package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/models"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.ID
	}{
		{name: "integer", raw: `7`, want: "7"},
		{name: "float with zero fraction", raw: `7.0`, want: "7"},
		{name: "string", raw: `"7"`, want: "7"},
		{name: "opaque string", raw: `"viz-climate-01"`, want: "viz-climate-01"},
		{name: "null", raw: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id models.ID
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
			require.Equal(t, tt.want, id)
		})
	}

	var id models.ID
	require.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestSameID(t *testing.T) {
	require.True(t, models.SameID("7", models.ParseID(" 7 ")))
	require.False(t, models.SameID("7", "07"))
	require.False(t, models.SameID("", ""))
}

func TestDatasetDecoding(t *testing.T) {
	payload := `{
		"news_articles": [
			{"id": 1, "title": "Heat records", "tags": ["Climate"], "fullContent": "One.\n\nTwo.\n\n\n"}
		],
		"visualizations": [
			{"id": "v1", "title": "Sea level", "imageUrl": "a.png",
			 "detailContent": {"keyInsights": ["rising", 3], "relatedViz": ["v2"]}},
			{"id": 2, "detailContent": {"keyInsights": "not a list"}},
			{"id": 3, "detailContent": {"keyInsights": []}}
		]
	}`

	var ds models.Dataset
	require.NoError(t, json.Unmarshal([]byte(payload), &ds))

	require.Len(t, ds.NewsArticles, 1)
	require.Equal(t, models.ID("1"), ds.NewsArticles[0].ID)
	require.Equal(t, []string{"One.", "Two."}, ds.NewsArticles[0].Paragraphs())

	require.Len(t, ds.Visualizations, 3)
	require.Equal(t, models.Insights{"rising", "3"}, ds.Visualizations[0].Detail.KeyInsights)
	require.Nil(t, ds.Visualizations[1].Detail.KeyInsights)
	require.NotNil(t, ds.Visualizations[2].Detail.KeyInsights)
	require.Empty(t, ds.Visualizations[2].Detail.KeyInsights)
}

func TestDisplayFallbacks(t *testing.T) {
	v := models.Visualization{Base: models.Base{Title: "  "}, Summary: "short"}
	require.Equal(t, models.UntitledText, v.DisplayTitle())
	require.Equal(t, "short", v.Description())
	require.Equal(t, "", v.FirstTag())

	v.Preview = "preview"
	require.Equal(t, "preview", v.Description())

	v.Detail = &models.DetailContent{Description: "rich"}
	require.Equal(t, "rich", v.Description())
}

func TestCloneDoesNotShareBackingArrays(t *testing.T) {
	ds := models.Dataset{Visualizations: []models.Visualization{{Base: models.Base{ID: "a"}}}}
	clone := ds.Clone()
	clone.Visualizations[0].ID = "b"
	require.Equal(t, models.ID("a"), ds.Visualizations[0].ID)
}

func TestParseKind(t *testing.T) {
	kind, err := models.ParseKind("viz")
	require.NoError(t, err)
	require.Equal(t, models.KindVisualization, kind)
	require.Equal(t, "viz", kind.Short())

	kind, err = models.ParseKind("News")
	require.NoError(t, err)
	require.Equal(t, models.KindNews, kind)

	_, err = models.ParseKind("podcast")
	require.Error(t, err)
}
