package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/metrics"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/source"
)

const fixture = `{
  "news_articles": [
    {"id": 1, "title": "Rainfall hits record", "preview": "Wettest spring", "source": "Met Desk", "tags": ["weather"], "externalLink": "https://news.example/rain"},
    {"id": 2, "title": "Transit budget approved", "preview": "Council vote", "tags": ["transport"]}
  ],
  "visualizations": [
    {"id": "v1", "title": "Rent map", "imageUrl": "https://cdn.example/rent.png", "tags": ["housing"],
     "detailContent": {"description": "Median **rent** by district", "keyInsights": ["North up 8%"]}},
    {"id": "v2", "title": "Bus ridership", "summary": "Riders per month"},
    {"id": "v3", "title": "Air quality"}
  ]
}`

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

func newTestServer(t *testing.T, data string, health healthChecker) *httptest.Server {
	t.Helper()

	var primary source.Source
	if data != "" {
		path := filepath.Join(t.TempDir(), "data.json")
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
		primary = source.File(path)
	} else {
		primary = source.File(filepath.Join(t.TempDir(), "missing.json"))
	}

	cfg := &config.API{Content: config.Content{DetailDelay: time.Millisecond, StripWindow: 5}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := newServer(log, cfg, primary, nil, health, metrics.New(nil))
	_ = srv.load(context.Background())

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestIndexRendersEverySection(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	resp, doc := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, doc.Find("#news .news-card").Length())
	require.Equal(t, 3, doc.Find("#visualizations .viz-card").Length())
	require.Equal(t, 3, doc.Find("#gallery .gallery-slide").Length())
	require.Equal(t, render.FeaturedSlots, doc.Find("#featured .full-card").Length())
	require.Equal(t, 3, doc.Find("#featured .full-card.empty").Length())
	require.Equal(t, "/detail/news/1", doc.Find(".news-card [data-action=open-detail]").First().AttrOr("href", ""))
}

func TestIndexFiltersByQuery(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	_, doc := get(t, ts.URL+"/?q=+RAIN+")
	require.Equal(t, 1, doc.Find(".news-card").Length())
	require.Equal(t, 0, doc.Find(".viz-card").Length())
	require.Equal(t, `No results for "RAIN"`, doc.Find("#visualizations .no-search-results").Text())
	require.Equal(t, "RAIN", doc.Find("input[name=q]").AttrOr("value", ""))

	// the gallery ignores the query
	require.Equal(t, 3, doc.Find(".gallery-slide").Length())
}

func TestFailedPrimaryShowsInlineErrors(t *testing.T) {
	ts := newTestServer(t, "", nil)

	_, doc := get(t, ts.URL+"/")
	require.Equal(t, render.NewsLoadError, doc.Find("#news .grid-error").Text())
	require.Equal(t, render.VisualizationLoadError, doc.Find("#visualizations .grid-error").Text())
	require.Equal(t, render.NoVisualsText, doc.Find(".gallery-empty").Text())
	require.Equal(t, render.FeaturedSlots, doc.Find(".full-card.empty").Length())

	resp, err := http.Get(ts.URL + "/api/news")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, "degraded", body["status"])

	_, doc = get(t, ts.URL+"/detail/viz/v1")
	require.Equal(t, render.UnavailableText("visualization"), doc.Find(".detail__message").Text())
}

func TestDetailPage(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	resp, doc := get(t, ts.URL+"/detail/viz/v1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Rent map", doc.Find(".detail__title").Text())
	require.Equal(t, "Rent map", doc.Find(".breadcrumb__current").Text())
	require.Equal(t, "rent", doc.Find(".detail__description strong").Text())
	require.False(t, doc.Find(".modal").HasClass("hidden"))
	require.True(t, doc.Find(".loading-spinner").HasClass("hidden"))

	resp, doc = get(t, ts.URL+"/detail/news/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, doc.Find(".modal__body").Text(), "Rainfall hits record")

	resp, doc = get(t, ts.URL+"/detail/viz/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, render.NotFoundText("visualization"), doc.Find(".detail__message").Text())
	require.Equal(t, render.NotFoundCrumb, doc.Find(".breadcrumb__current").Text())

	resp, _ = get(t, ts.URL+"/detail/podcast/1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGalleryNavigation(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	resp, doc := get(t, ts.URL+"/gallery?index=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, doc.Find(".full-card").Eq(2).HasClass("active"))
	require.True(t, doc.Find(".thumb-card").Eq(2).HasClass("active"))
	require.Contains(t, doc.Find(".gallery-meta").Text(), "3 / 3")

	resp, err := http.Post(ts.URL+"/gallery/advance?dir=1", "", nil)
	require.NoError(t, err)
	var st galleryResponse
	decode(t, resp, &st)
	require.Equal(t, 0, st.Index)
	require.Equal(t, "v1", st.ID)

	resp, err = http.Post(ts.URL+"/gallery/advance?dir=-1", "", nil)
	require.NoError(t, err)
	decode(t, resp, &st)
	require.Equal(t, 2, st.Index)
	require.Equal(t, "Air quality", st.Title)

	resp, err = http.Post(ts.URL+"/gallery/advance?dir=3", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/gallery?index=9")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/gallery")
	require.NoError(t, err)
	decode(t, resp, &st)
	require.Equal(t, 2, st.Index, "failed jump leaves the index unchanged")
}

func TestItemActions(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	resp, err := http.Post(ts.URL+"/detail/viz/v1/share", "", nil)
	require.NoError(t, err)
	var out actionResponse
	decode(t, resp, &out)
	require.Equal(t, "notice", out.Method)
	require.Equal(t, []string{"Rent map - /detail/viz/v1"}, out.Notices)

	resp, err = http.Post(ts.URL+"/detail/news/2/bookmark", "", nil)
	require.NoError(t, err)
	decode(t, resp, &out)
	require.Equal(t, []string{`"Transit budget approved" has been bookmarked!`}, out.Notices)

	resp, err = http.Post(ts.URL+"/detail/viz/v2/download", "", nil)
	require.NoError(t, err)
	decode(t, resp, &out)
	require.Equal(t, []string{`Downloading "Bus ridership" - Feature coming soon!`}, out.Notices)

	resp, err = http.Post(ts.URL+"/detail/viz/missing/bookmark", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJSONEndpoints(t *testing.T) {
	ts := newTestServer(t, fixture, nil)

	resp, err := http.Get(ts.URL + "/api/visualizations?q=HOUSING")
	require.NoError(t, err)
	var list struct {
		Query string            `json:"query"`
		Total int               `json:"total"`
		Items []json.RawMessage `json:"items"`
	}
	decode(t, resp, &list)
	require.Equal(t, "HOUSING", list.Query)
	require.Equal(t, 1, list.Total)
	require.Contains(t, string(list.Items[0]), `"Rent map"`)

	resp, err = http.Get(ts.URL + "/api/news")
	require.NoError(t, err)
	decode(t, resp, &list)
	require.Equal(t, 2, list.Total)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, fixture, stubHealth{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, "ok", body["status"])

	_, _ = get(t, ts.URL+"/detail/viz/v1")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(data), `vizdesk_detail_opens_total{kind="viz",outcome="found"} 1`)
	require.Contains(t, string(data), `route="/detail/{kind}/{id}"`)
	require.Contains(t, string(data), `vizdesk_dataset_items{kind="visualization"} 3`)

	bad := newTestServer(t, fixture, stubHealth{err: errors.New("red")})
	resp, err = http.Get(bad.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUsesIndex(t *testing.T) {
	require.True(t, usesIndex(" es:items"))
	require.False(t, usesIndex("data.json"))
	require.False(t, usesIndex("https://es.example/data.json"))
}
