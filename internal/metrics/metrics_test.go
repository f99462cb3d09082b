package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/metrics"
)

func TestCountersAccumulate(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveRequest("/detail/{kind}/{id}", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("/detail/{kind}/{id}", http.StatusOK, time.Millisecond)
	m.ObserveRequest("", http.StatusNotFound, time.Millisecond)
	m.DetailOpened("viz", "found")
	m.Search("news")
	m.SetDataset(3, 7)
	m.Indexed("news")
	m.Duplicate()
	m.Parked()
	m.Published(4)
	m.Deleted(9)

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/detail/{kind}/{id}", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DetailOpens.WithLabelValues("viz", "found")))
	require.Equal(t, 7.0, testutil.ToFloat64(m.DatasetItems.WithLabelValues("visualization")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.FeedItems))
	require.Equal(t, 9.0, testutil.ToFloat64(m.RetentionDeleted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DLQEnqueued))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveRequest("/", http.StatusOK, time.Millisecond)
		m.CarouselMoved("advance")
		m.Failed("decode")
		m.FeedFailed()
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New(nil)
	m.CarouselMoved("jump")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, string(body), `vizdesk_carousel_moves_total{trigger="jump"} 1`)
}
