// Package source retrieves the raw bytes of a dataset from a named
// resource: a local file, an HTTP(S) URL, or a search-index snapshot.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrStatus reports a non-success HTTP response.
var ErrStatus = errors.New("unexpected status")

// maxPayload bounds how much of a remote payload is read.
const maxPayload = 32 << 20

// Source is a named resource that may fail to produce its bytes.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// Snapshotter produces a dataset payload from a search index.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Parse maps a source location onto a Source: http(s) URLs are fetched over
// HTTP, "es:<index>" reads a snapshot from snap, anything else is a path.
// A blank location yields a nil Source.
func Parse(location string, snap Snapshotter) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTP(location, nil), nil
	case strings.HasPrefix(location, "es:"):
		if snap == nil {
			return nil, fmt.Errorf("source %q needs an elasticsearch client", location)
		}
		return &Index{name: location, snap: snap}, nil
	default:
		return File(strings.TrimPrefix(location, "file://")), nil
	}
}

// File reads a dataset from the local filesystem.
type File string

// Name implements Source.
func (f File) Name() string { return string(f) }

// Fetch implements Source.
func (f File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f, err)
	}
	return data, nil
}

// HTTP fetches a dataset with a GET request.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP builds an HTTP source. A nil client gets a 10s timeout default.
func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{url: url, client: client}
}

// Name implements Source.
func (h *HTTP) Name() string { return h.url }

// Fetch implements Source. Any non-2xx status is a failure.
func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", h.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: %w: %s", h.url, ErrStatus, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", h.url, err)
	}
	return data, nil
}

// Index reads a snapshot of the items stored in the search index.
type Index struct {
	name string
	snap Snapshotter
}

// Name implements Source.
func (i *Index) Name() string { return i.name }

// Fetch implements Source.
func (i *Index) Fetch(ctx context.Context) ([]byte, error) {
	data, err := i.snap.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", i.name, err)
	}
	return data, nil
}
