// Package metrics exports Prometheus counters for the front ends and the
// ingestion pipeline.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vizdesk"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP front end
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Browsing
	Searches      *prometheus.CounterVec
	DetailOpens   *prometheus.CounterVec
	CarouselMoves *prometheus.CounterVec
	DatasetItems  *prometheus.GaugeVec
	Shares        *prometheus.CounterVec

	// Pipeline
	RecordsIndexed   *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec
	Duplicates       prometheus.Counter
	DLQEnqueued      prometheus.Counter
	FeedItems        prometheus.Counter
	FeedErrors       prometheus.Counter
	RetentionDeleted prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})
	m.HTTPDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route"})

	m.Searches = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Search filter applications by collection",
	}, []string{"kind"})
	m.DetailOpens = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detail_opens_total",
		Help:      "Detail views opened by kind and outcome",
	}, []string{"kind", "outcome"})
	m.CarouselMoves = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "carousel_moves_total",
		Help:      "Carousel transitions by trigger",
	}, []string{"trigger"})
	m.DatasetItems = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_items",
		Help:      "Items in the loaded dataset by collection",
	}, []string{"kind"})
	m.Shares = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shares_total",
		Help:      "Share actions by the method that handled them",
	}, []string{"method"})

	m.RecordsIndexed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_indexed_total",
		Help:      "Records written to the search index by kind",
	}, []string{"kind"})
	m.RecordsFailed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_failed_total",
		Help:      "Records the worker could not index by stage",
	}, []string{"stage"})
	m.Duplicates = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_duplicate_total",
		Help:      "Records skipped as recently indexed",
	})
	m.DLQEnqueued = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dlq_enqueued_total",
		Help:      "Records parked on the dead-letter topic",
	})
	m.FeedItems = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_items_published_total",
		Help:      "Feed entries published to the ingestion topic",
	})
	m.FeedErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_errors_total",
		Help:      "Feed fetches that failed",
	})
	m.RetentionDeleted = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_deleted_total",
		Help:      "Records removed by the retention loop",
	})
	return m
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is done. A blank addr disables
// the listener.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if log != nil {
		log.Info("metrics listening", slog.String("addr", addr))
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Search counts one filter application.
func (m *Metrics) Search(kind string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(kind).Inc()
}

// DetailOpened counts one detail request and how it ended.
func (m *Metrics) DetailOpened(kind, outcome string) {
	if m == nil {
		return
	}
	m.DetailOpens.WithLabelValues(kind, outcome).Inc()
}

// CarouselMoved counts one carousel transition.
func (m *Metrics) CarouselMoved(trigger string) {
	if m == nil {
		return
	}
	m.CarouselMoves.WithLabelValues(trigger).Inc()
}

// Shared counts one share action.
func (m *Metrics) Shared(method string) {
	if m == nil {
		return
	}
	m.Shares.WithLabelValues(method).Inc()
}

// SetDataset publishes the collection sizes.
func (m *Metrics) SetDataset(news, visualizations int) {
	if m == nil {
		return
	}
	m.DatasetItems.WithLabelValues("news").Set(float64(news))
	m.DatasetItems.WithLabelValues("visualization").Set(float64(visualizations))
}

// Indexed counts one record written to the index.
func (m *Metrics) Indexed(kind string) {
	if m == nil {
		return
	}
	m.RecordsIndexed.WithLabelValues(kind).Inc()
}

// Failed counts one record the worker gave up on at stage.
func (m *Metrics) Failed(stage string) {
	if m == nil {
		return
	}
	m.RecordsFailed.WithLabelValues(stage).Inc()
}

// Duplicate counts one skipped duplicate.
func (m *Metrics) Duplicate() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

// Parked counts one record sent to the dead-letter topic.
func (m *Metrics) Parked() {
	if m == nil {
		return
	}
	m.DLQEnqueued.Inc()
}

// Published counts feed entries written to the ingestion topic.
func (m *Metrics) Published(n int) {
	if m == nil {
		return
	}
	m.FeedItems.Add(float64(n))
}

// FeedFailed counts one failed feed fetch.
func (m *Metrics) FeedFailed() {
	if m == nil {
		return
	}
	m.FeedErrors.Inc()
}

// Deleted counts records removed by retention.
func (m *Metrics) Deleted(n int64) {
	if m == nil {
		return
	}
	m.RetentionDeleted.Add(float64(n))
}
