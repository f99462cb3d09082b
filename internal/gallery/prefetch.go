package gallery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DeafMist/vizdesk/internal/dedupe"
)

const (
	prefetchTimeout  = 15 * time.Second
	prefetchMaxBytes = 16 << 20
)

// MaxPrefetches caps how many image downloads run at once.
const MaxPrefetches = 4

// HTTPPrefetcher downloads and discards images in the background so the
// next transition finds them in the HTTP caches along the way. URLs seen
// inside the cache ttl are skipped; failed ones may be retried.
type HTTPPrefetcher struct {
	client *http.Client
	seen   *dedupe.Cache
	log    *slog.Logger
	slots  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHTTPPrefetcher creates a prefetcher. client may be nil.
func NewHTTPPrefetcher(client *http.Client, seen *dedupe.Cache, logger *slog.Logger) *HTTPPrefetcher {
	if client == nil {
		client = &http.Client{Timeout: prefetchTimeout}
	}
	if seen == nil {
		seen = dedupe.NewCache(256, 10*time.Minute)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPPrefetcher{
		client: client,
		seen:   seen,
		log:    logger,
		slots:  make(chan struct{}, MaxPrefetches),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Prefetch implements Prefetcher. Only http(s) URLs are fetched.
func (p *HTTPPrefetcher) Prefetch(urls ...string) {
	for _, u := range urls {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		if !p.seen.MarkIfNew(u) {
			continue
		}
		p.wg.Add(1)
		go func(u string) {
			defer p.wg.Done()
			select {
			case p.slots <- struct{}{}:
				defer func() { <-p.slots }()
			case <-p.ctx.Done():
				p.seen.Forget(u)
				return
			}
			if err := p.fetch(u); err != nil {
				p.seen.Forget(u)
				p.log.Debug("prefetch failed", slog.String("url", u), slog.Any("err", err))
			}
		}(u)
	}
}

// Wait blocks until every started prefetch finished.
func (p *HTTPPrefetcher) Wait() {
	p.wg.Wait()
}

// Close cancels running prefetches and waits for them.
func (p *HTTPPrefetcher) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *HTTPPrefetcher) fetch(u string) error {
	ctx, cancel := context.WithTimeout(p.ctx, prefetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, prefetchMaxBytes))
	return err
}
