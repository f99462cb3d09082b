// Package detail implements the detail modal: a Closed -> Loading -> Open
// state machine that populates a rendered body for one item after a
// configurable delay, plus the Share, Bookmark and Download actions.
package detail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/platform"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/view"
)

// DefaultDelay is used when Options.Delay is zero.
const DefaultDelay = 200 * time.Millisecond

var (
	// ErrCancelled is returned by Open when the population was abandoned,
	// either by Close, by a newer Open or by the caller's context.
	ErrCancelled = errors.New("detail population cancelled")
	// ErrNoItem is returned by actions whose item does not exist.
	ErrNoItem = errors.New("no such item")
	// ErrUnhandled is returned by Dispatch for actions the modal does not own.
	ErrUnhandled = errors.New("action not handled by the detail modal")
)

// State of the modal.
type State int

const (
	Closed State = iota
	Loading
	Open
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Outcome tells what an Open populated.
type Outcome string

const (
	OutcomeFound       Outcome = "found"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeUnavailable Outcome = "unavailable"
)

// Catalog is the unfiltered dataset the modal looks items up in.
type Catalog interface {
	LookupNews(id models.ID) (models.NewsArticle, bool)
	LookupVisualization(id models.ID) (models.Visualization, bool)
	Failed(kind models.Kind) bool
}

// Options configure a Modal.
type Options struct {
	Delay     time.Duration
	PublicURL string
	Logger    *slog.Logger
}

// Snapshot is a consistent copy of the modal state.
type Snapshot struct {
	State      State
	Kind       models.Kind
	ID         models.ID
	Title      string
	Breadcrumb string
	Outcome    Outcome
	Body       view.Fragment
}

// Modal is the detail controller. It is safe for concurrent use; the
// generation counter decides which population may still apply.
type Modal struct {
	log       *slog.Logger
	catalog   Catalog
	render    *render.Renderer
	platform  platform.Platform
	delay     time.Duration
	publicURL string

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot
}

// New builds a closed modal.
func New(catalog Catalog, r *render.Renderer, p platform.Platform, opts Options) *Modal {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Modal{
		log:       opts.Logger,
		catalog:   catalog,
		render:    r,
		platform:  p,
		delay:     opts.Delay,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}
}

// Open enters Loading, waits the configured delay and then populates the
// body for (kind, id) from the unfiltered catalog before entering Open.
// It blocks for the delay. If Close or another Open happens meanwhile, or
// ctx ends, nothing is applied and ErrCancelled is returned.
func (m *Modal) Open(ctx context.Context, kind models.Kind, id models.ID) (Outcome, error) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.snap = Snapshot{State: Loading, Kind: kind, ID: id}
	m.mu.Unlock()
	defer cancel()

	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		m.mu.Lock()
		if gen == m.gen {
			m.snap = Snapshot{State: Closed}
			m.cancel = nil
		}
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-timer.C:
	}

	next := m.populate(kind, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.snap.State != Loading {
		return "", ErrCancelled
	}
	m.snap = next
	m.cancel = nil
	return next.Outcome, nil
}

func (m *Modal) populate(kind models.Kind, id models.ID) Snapshot {
	s := Snapshot{State: Open, Kind: kind, ID: id}

	title, ok := m.title(kind, id)
	switch {
	case !ok && m.catalog.Failed(kind):
		m.log.Error("detail data unavailable", slog.String("kind", string(kind)), slog.String("id", string(id)))
		s.Outcome = OutcomeUnavailable
		s.Body = render.DetailMessage(render.UnavailableText(kind))
	case !ok:
		m.log.Warn("detail item not found", slog.String("kind", string(kind)), slog.String("id", string(id)))
		s.Outcome = OutcomeNotFound
		s.Breadcrumb = render.NotFoundCrumb
		s.Body = render.DetailMessage(render.NotFoundText(kind))
	case kind == models.KindNews:
		a, _ := m.catalog.LookupNews(id)
		s.Outcome = OutcomeFound
		s.Title = title
		s.Breadcrumb = title
		s.Body = m.render.NewsDetail(a)
	default:
		v, _ := m.catalog.LookupVisualization(id)
		s.Outcome = OutcomeFound
		s.Title = title
		s.Breadcrumb = title
		s.Body = m.render.VisualizationDetail(v)
	}
	return s
}

// Close returns to Closed from any state and cancels a pending population.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.snap = Snapshot{State: Closed}
}

// State returns the current state.
func (m *Modal) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.State
}

// Snapshot returns a copy of the current state and body.
func (m *Modal) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Chrome renders the modal with its current body.
func (m *Modal) Chrome() view.Fragment {
	s := m.Snapshot()
	return m.render.Modal(render.ModalState{
		Visible:    s.State == Open,
		Loading:    s.State == Loading,
		Breadcrumb: s.Breadcrumb,
		Body:       s.Body,
	})
}

// ItemURL is the public link of an item, used by Share.
func (m *Modal) ItemURL(kind models.Kind, id models.ID) string {
	return m.publicURL + "/detail/" + kind.Short() + "/" + url.PathEscape(string(id))
}

// Share shares an item through the platform fallback chain.
func (m *Modal) Share(ctx context.Context, kind models.Kind, id models.ID) (platform.Method, error) {
	title, ok := m.title(kind, id)
	if !ok {
		return "", fmt.Errorf("share %s %s: %w", kind, id, ErrNoItem)
	}
	text := "Check out this visualization: " + title
	if kind == models.KindNews {
		text = "Interesting article: " + title
	}
	method := platform.Share(ctx, m.platform, platform.Payload{
		Title: title,
		Text:  text,
		URL:   m.ItemURL(kind, id),
	})
	m.log.Debug("item shared", slog.String("kind", string(kind)), slog.String("id", string(id)), slog.String("method", string(method)))
	return method, nil
}

// Bookmark acknowledges a bookmark. Nothing is persisted.
func (m *Modal) Bookmark(kind models.Kind, id models.ID) error {
	title, ok := m.title(kind, id)
	if !ok {
		return fmt.Errorf("bookmark %s %s: %w", kind, id, ErrNoItem)
	}
	m.platform.Notify(fmt.Sprintf(`"%s" has been bookmarked!`, title))
	return nil
}

// Download acknowledges a download request. Nothing is downloaded.
func (m *Modal) Download(kind models.Kind, id models.ID) error {
	title, ok := m.title(kind, id)
	if !ok {
		return fmt.Errorf("download %s %s: %w", kind, id, ErrNoItem)
	}
	m.platform.Notify(fmt.Sprintf(`Downloading "%s" - Feature coming soon!`, title))
	return nil
}

// Dispatch runs the modal-owned action a. Open blocks for the delay.
func (m *Modal) Dispatch(ctx context.Context, a view.Action) error {
	switch a.Kind {
	case view.ActionOpenDetail:
		_, err := m.Open(ctx, a.ItemKind, a.ItemID)
		return err
	case view.ActionCloseDetail:
		m.Close()
		return nil
	case view.ActionShare:
		_, err := m.Share(ctx, a.ItemKind, a.ItemID)
		return err
	case view.ActionBookmark:
		return m.Bookmark(a.ItemKind, a.ItemID)
	case view.ActionDownload:
		return m.Download(a.ItemKind, a.ItemID)
	}
	return fmt.Errorf("%w: %s", ErrUnhandled, a.Kind)
}

func (m *Modal) title(kind models.Kind, id models.ID) (string, bool) {
	if kind == models.KindNews {
		a, ok := m.catalog.LookupNews(id)
		return a.DisplayTitle(), ok
	}
	v, ok := m.catalog.LookupVisualization(id)
	return v.DisplayTitle(), ok
}
