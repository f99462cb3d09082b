// Package dataset owns the loaded collections and the filtered view
// derived from them.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/search"
	"github.com/DeafMist/vizdesk/internal/source"
)

// ErrFetch marks a failure to retrieve or decode the primary dataset.
var ErrFetch = errors.New("fetch dataset")

// Store holds the dataset, the active query and the filtered view.
// The dataset is written once by Load; everything else reads it.
type Store struct {
	log *slog.Logger

	mu     sync.RWMutex
	data   models.Dataset
	err    error
	loaded bool
	view   search.View
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{log: logger}
}

// Load retrieves the primary dataset and, when it carries no
// visualizations, the fallback visualization resource. A primary failure
// leaves the store empty and is returned (wrapped in ErrFetch); fallback
// failures are logged and swallowed. fallback may be nil.
func (s *Store) Load(ctx context.Context, primary, fallback source.Source) error {
	var (
		ds         models.Dataset
		primaryErr error
	)

	if primary == nil {
		primaryErr = fmt.Errorf("%w: no primary source configured", ErrFetch)
	} else if loaded, err := s.fetchDataset(ctx, primary); err != nil {
		primaryErr = fmt.Errorf("%w: %s: %w", ErrFetch, primary.Name(), err)
	} else {
		ds = loaded
	}

	if primaryErr != nil {
		s.log.Error("load dataset", slog.Any("err", primaryErr))
	}

	if len(ds.Visualizations) == 0 && fallback != nil {
		ds.Visualizations = s.fetchFallback(ctx, fallback)
	}

	view := search.Filter(ds, "")

	s.mu.Lock()
	s.data = ds
	s.err = primaryErr
	s.loaded = true
	s.view = view
	s.mu.Unlock()

	s.log.Info("dataset loaded",
		slog.Int("news_articles", len(ds.NewsArticles)),
		slog.Int("visualizations", len(ds.Visualizations)),
	)
	return primaryErr
}

func (s *Store) fetchFallback(ctx context.Context, fallback source.Source) []models.Visualization {
	data, err := fallback.Fetch(ctx)
	if err != nil {
		s.log.Warn("visualization fallback unavailable, using empty collection",
			slog.String("source", fallback.Name()),
			slog.Any("err", err),
		)
		return []models.Visualization{}
	}

	var payload rawDataset
	if err := json.Unmarshal(data, &payload); err != nil {
		s.log.Warn("decode visualization fallback",
			slog.String("source", fallback.Name()),
			slog.Any("err", err),
		)
		return []models.Visualization{}
	}
	items := decodeItems[models.Visualization](s.log, models.KindVisualization, fallback.Name(), payload.Visualizations)
	if items == nil {
		return []models.Visualization{}
	}
	return items
}

// rawDataset defers item decoding so one malformed item does not sink
// its whole collection.
type rawDataset struct {
	NewsArticles   []json.RawMessage `json:"news_articles"`
	Visualizations []json.RawMessage `json:"visualizations"`
}

func (s *Store) fetchDataset(ctx context.Context, src source.Source) (models.Dataset, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return models.Dataset{}, err
	}
	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Dataset{}, fmt.Errorf("decode: %w", err)
	}
	return models.Dataset{
		NewsArticles:   decodeItems[models.NewsArticle](s.log, models.KindNews, src.Name(), raw.NewsArticles),
		Visualizations: decodeItems[models.Visualization](s.log, models.KindVisualization, src.Name(), raw.Visualizations),
	}, nil
}

// decodeItems decodes each element on its own and drops the ones that do
// not fit T. A missing collection stays nil.
func decodeItems[T any](log *slog.Logger, kind models.Kind, from string, raws []json.RawMessage) []T {
	if raws == nil {
		return nil
	}
	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			log.Warn("skip malformed item",
				slog.String("source", from),
				slog.String("kind", string(kind)),
				slog.Int("position", i),
				slog.Any("err", err),
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

// Search recomputes the filtered view for query and returns it.
func (s *Store) Search(query string) search.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = search.Filter(s.data, query)
	return s.view
}

// View returns the current filtered view.
func (s *Store) View() search.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Dataset returns a copy of the unfiltered dataset.
func (s *Store) Dataset() models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Visualizations returns the unfiltered visualization collection.
func (s *Store) Visualizations() []models.Visualization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Visualization(nil), s.data.Visualizations...)
}

// Err returns the primary load failure, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether Load has settled, successfully or not.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Failed reports whether the grid for kind has to show the load error:
// the primary load failed and nothing filled the collection since.
func (s *Store) Failed(kind models.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err != nil && s.data.Len(kind) == 0
}

// LookupNews finds an article by id in the unfiltered dataset.
func (s *Store) LookupNews(id models.ID) (models.NewsArticle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.data.NewsArticles {
		if models.SameID(a.ID, id) {
			return a, true
		}
	}
	return models.NewsArticle{}, false
}

// LookupVisualization finds a visualization by id in the unfiltered dataset.
func (s *Store) LookupVisualization(id models.ID) (models.Visualization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.data.Visualizations {
		if models.SameID(v.ID, id) {
			return v, true
		}
	}
	return models.Visualization{}, false
}
