package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/detail"
	"github.com/DeafMist/vizdesk/internal/gallery"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/platform"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/search"
	"github.com/DeafMist/vizdesk/internal/view"
)

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Query string `json:"query"`
	Total int    `json:"total"`
	Items any    `json:"items"`
}

type galleryResponse struct {
	Index     int    `json:"index"`
	Prev      int    `json:"prev"`
	Next      int    `json:"next"`
	Count     int    `json:"count"`
	Animating bool   `json:"animating"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Meta      string `json:"meta"`
}

type actionResponse struct {
	Method  string   `json:"method,omitempty"`
	Notices []string `json:"notices"`
}

// noticeBoard is the Platform of an HTTP request: no native share, no
// clipboard, notices returned to the client.
type noticeBoard struct {
	mu      sync.Mutex
	notices []string
}

func (b *noticeBoard) Share(context.Context, platform.Payload) error { return platform.ErrUnsupported }

func (b *noticeBoard) WriteClipboard(context.Context, string) error { return platform.ErrUnsupported }

func (b *noticeBoard) Notify(msg string) {
	b.mu.Lock()
	b.notices = append(b.notices, msg)
	b.mu.Unlock()
}

func (b *noticeBoard) list() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.notices...)
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	v := search.Filter(s.store.Dataset(), query)
	if search.Normalize(query) != "" {
		s.metrics.Search("all")
	}

	news := s.render.NewsGrid(v, s.store.Failed(models.KindNews))
	vizs := s.render.VisualizationGrid(v, s.store.Failed(models.KindVisualization))

	doc := document("",
		header(v.Query),
		view.El("main", "page",
			sectionWithID("news", "News", news.Node),
			sectionWithID("visualizations", "Visualizations", vizs.Node),
			s.gallerySection(),
			s.featuredSection(),
		),
	)
	writePage(w, http.StatusOK, doc)
}

func (s *server) gallerySection() *html.Node {
	g := s.currentGallery()
	if g == nil {
		return sectionWithID("gallery", "Gallery", s.render.Viewport(nil, 0, 0).Node)
	}
	return sectionWithID("gallery", "Gallery", g.Viewport.Fragment().Node, g.Strip.Fragment().Node)
}

func (s *server) featuredSection() *html.Node {
	g := s.currentGallery()
	if g == nil {
		return sectionWithID("featured", "Featured", s.render.FeaturedGrid(nil, -1).Node)
	}
	return sectionWithID("featured", "Featured", g.Featured.Fragment().Node)
}

func (s *server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "index must be an integer", http.StatusBadRequest)
			return
		}
		g := s.currentGallery()
		if g == nil {
			http.Error(w, render.NoVisualsText, http.StatusNotFound)
			return
		}
		if status, ok := s.move(r.Context(), g.JumpTo(r.Context(), index), "jump"); !ok {
			http.Error(w, http.StatusText(status), status)
			return
		}
	}

	doc := document("Gallery",
		header(""),
		view.El("main", "page", s.gallerySection(), s.featuredSection()),
	)
	writePage(w, http.StatusOK, doc)
}

func (s *server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	dir := 1
	if raw := r.URL.Query().Get("dir"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "dir must be -1 or 1"})
			return
		}
		dir = parsed
	}

	g := s.currentGallery()
	if g == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: render.NoVisualsText})
		return
	}
	err := g.Advance(r.Context(), dir)
	if status, ok := s.move(r.Context(), err, "advance"); !ok {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, galleryState(g))
}

// move maps a carousel result onto a status code and counts successes.
func (s *server) move(ctx context.Context, err error, trigger string) (int, bool) {
	switch {
	case err == nil:
		s.metrics.CarouselMoved(trigger)
		return http.StatusOK, true
	case errors.Is(err, gallery.ErrBusy):
		return http.StatusConflict, false
	case errors.Is(err, gallery.ErrOutOfRange), errors.Is(err, gallery.ErrDirection):
		return http.StatusBadRequest, false
	default:
		s.log.WarnContext(ctx, "carousel move", slog.String("trigger", trigger), slog.Any("err", err))
		return http.StatusServiceUnavailable, false
	}
}

func (s *server) handleGalleryJSON(w http.ResponseWriter, r *http.Request) {
	g := s.currentGallery()
	if g == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: render.NoVisualsText})
		return
	}
	writeJSON(w, http.StatusOK, galleryState(g))
}

func galleryState(g *gallery.Gallery) galleryResponse {
	st := g.State()
	cur := g.Current()
	return galleryResponse{
		Index:     st.Index,
		Prev:      st.Prev,
		Next:      st.Next,
		Count:     st.Count,
		Animating: st.Animating,
		ID:        string(cur.ID),
		Title:     cur.DisplayTitle(),
		Meta:      render.GalleryMeta(cur, st.Index, st.Count),
	}
}

// itemParams reads the kind and id path parameters.
func itemParams(r *http.Request) (models.Kind, models.ID, error) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", err
	}
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return kind, models.ParseID(raw), nil
}

func (s *server) newModal(p platform.Platform) *detail.Modal {
	return detail.New(s.store, s.render, p, detail.Options{
		Delay:     s.cfg.DetailDelay,
		PublicURL: s.cfg.PublicURL,
		Logger:    s.log,
	})
}

func (s *server) handleDetail(w http.ResponseWriter, r *http.Request) {
	kind, id, err := itemParams(r)
	if err != nil {
		writePage(w, http.StatusNotFound, document(render.NotFoundCrumb, header(""), render.DetailMessage(err.Error()).Node))
		return
	}

	modal := s.newModal(&noticeBoard{})
	outcome, err := modal.Open(r.Context(), kind, id)
	if err != nil {
		// The client went away during the loading delay.
		s.log.DebugContext(r.Context(), "detail abandoned", slog.Any("err", err))
		return
	}
	s.metrics.DetailOpened(kind.Short(), string(outcome))

	status := http.StatusOK
	switch outcome {
	case detail.OutcomeNotFound:
		status = http.StatusNotFound
	case detail.OutcomeUnavailable:
		status = http.StatusServiceUnavailable
	}

	snap := modal.Snapshot()
	doc := document(snap.Breadcrumb, header(""), view.El("main", "page", modal.Chrome().Node))
	writePage(w, status, doc)
}

func (s *server) handleItemAction(w http.ResponseWriter, r *http.Request) {
	kind, id, err := itemParams(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	board := &noticeBoard{}
	modal := s.newModal(board)

	var resp actionResponse
	switch chi.URLParam(r, "action") {
	case "share":
		var method platform.Method
		method, err = modal.Share(r.Context(), kind, id)
		if err == nil {
			s.metrics.Shared(string(method))
			resp.Method = string(method)
		}
	case "bookmark":
		err = modal.Bookmark(kind, id)
	case "download":
		err = modal.Download(kind, id)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown action"})
		return
	}

	if errors.Is(err, detail.ErrNoItem) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: render.NotFoundText(kind)})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	resp.Notices = board.list()
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleNewsJSON(w http.ResponseWriter, r *http.Request) {
	if s.store.Failed(models.KindNews) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: render.NewsLoadError})
		return
	}
	v := search.Filter(s.store.Dataset(), r.URL.Query().Get("q"))
	if v.Query != "" {
		s.metrics.Search(string(models.KindNews))
	}
	writeJSON(w, http.StatusOK, listResponse{Query: v.Query, Total: len(v.NewsArticles), Items: v.NewsArticles})
}

func (s *server) handleVisualizationsJSON(w http.ResponseWriter, r *http.Request) {
	if s.store.Failed(models.KindVisualization) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: render.VisualizationLoadError})
		return
	}
	v := search.Filter(s.store.Dataset(), r.URL.Query().Get("q"))
	if v.Query != "" {
		s.metrics.Search(string(models.KindVisualization))
	}
	writeJSON(w, http.StatusOK, listResponse{Query: v.Query, Total: len(v.Visualizations), Items: v.Visualizations})
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.load(r.Context())
	ds := s.store.Dataset()
	body := map[string]any{
		"news_articles":  len(ds.NewsArticles),
		"visualizations": len(ds.Visualizations),
	}
	if err != nil {
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.store.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	body := map[string]string{"status": "ok"}
	if err := s.store.Err(); err != nil {
		body["status"] = "degraded"
		body["load_error"] = strings.TrimSpace(err.Error())
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
