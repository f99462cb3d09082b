package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/dataset"
	"github.com/DeafMist/vizdesk/internal/elasticsearch"
	"github.com/DeafMist/vizdesk/internal/gallery"
	"github.com/DeafMist/vizdesk/internal/logger"
	"github.com/DeafMist/vizdesk/internal/metrics"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/source"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var esClient *elasticsearch.Client
	if usesIndex(cfg.DataSource) || usesIndex(cfg.FallbackSource) {
		esClient, err = elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultBackoff)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
	}

	var snap source.Snapshotter
	var health healthChecker
	if esClient != nil {
		snap, health = esClient, esClient
	}
	primary, err := source.Parse(cfg.DataSource, snap)
	if err != nil {
		log.Error("data source", slog.Any("err", err))
		os.Exit(1)
	}
	fallback, err := source.Parse(cfg.FallbackSource, snap)
	if err != nil {
		log.Error("fallback source", slog.Any("err", err))
		os.Exit(1)
	}

	srv := newServer(log, cfg, primary, fallback, health, metrics.New(nil))
	// A failed primary still serves the inline error grids.
	_ = srv.load(ctx)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func usesIndex(location string) bool {
	return strings.HasPrefix(strings.TrimSpace(location), "es:")
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	store    *dataset.Store
	render   *render.Renderer
	health   healthChecker
	metrics  *metrics.Metrics
	primary  source.Source
	fallback source.Source

	mu      sync.RWMutex
	gallery *gallery.Gallery
}

func newServer(log *slog.Logger, cfg *config.API, primary, fallback source.Source, health healthChecker, m *metrics.Metrics) *server {
	r := render.New(render.Options{
		Placeholder: cfg.Placeholder,
		DetailHref:  detailPath,
		JumpHref: func(index int) string {
			return "/gallery?index=" + strconv.Itoa(index)
		},
	})
	return &server{
		log:      log,
		cfg:      cfg,
		store:    dataset.New(log),
		render:   r,
		health:   health,
		metrics:  m,
		primary:  primary,
		fallback: fallback,
	}
}

func detailPath(kind models.Kind, id models.ID) string {
	return "/detail/" + kind.Short() + "/" + url.PathEscape(string(id))
}

// load (re)reads the dataset and rebuilds the gallery over it.
func (s *server) load(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.store.Load(loadCtx, s.primary, s.fallback)

	ds := s.store.Dataset()
	s.metrics.SetDataset(len(ds.NewsArticles), len(ds.Visualizations))

	g, gErr := gallery.Build(ds.Visualizations, s.render, s.cfg.StripWindow, gallery.Options{Logger: s.log})
	if gErr != nil {
		g = nil
	}
	s.mu.Lock()
	s.gallery = g
	s.mu.Unlock()
	return err
}

func (s *server) currentGallery() *gallery.Gallery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gallery
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/", s.handleIndex)
	r.Get("/gallery", s.handleGallery)
	r.Post("/gallery/advance", s.handleAdvance)
	r.Get("/detail/{kind}/{id}", s.handleDetail)
	r.Post("/detail/{kind}/{id}/{action}", s.handleItemAction)

	r.Route("/api", func(r chi.Router) {
		r.Get("/news", s.handleNewsJSON)
		r.Get("/visualizations", s.handleVisualizationsJSON)
		r.Get("/gallery", s.handleGalleryJSON)
		r.Post("/reload", s.handleReload)
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// instrument records every request under its route pattern.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(route, status, time.Since(start))
	})
}
