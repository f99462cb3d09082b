package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/vizdesk/internal/models"
)

const (
	// maxWindow mirrors the default index.max_result_window.
	maxWindow = 10000
	// maxPage caps a single SearchRecords page.
	maxPage = 1000
	// snapshotPage is the page size Snapshot walks the index with.
	snapshotPage = 500
)

// searchFields are matched by free-text queries; titles weigh double.
var searchFields = []string{"item.title^2", "item.preview", "item.summary", "item.category", "item.tags"}

// Client wraps go-elasticsearch with helpers tailored to this project.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// SearchParams narrow a record query.
type SearchParams struct {
	Query string
	Kind  models.Kind
	From  int
	Size  int
	Sort  string
	Since *time.Time
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64
	Items []models.Record
}

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger}, nil
}

// Index returns the index name the client writes to.
func (c *Client) Index() string { return c.index }

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Health asks the cluster for its health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return responseError("cluster health", res)
	}
	return nil
}

// responseError reads an error response into an error carrying its body.
func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = res.Status()
	}
	return fmt.Errorf("%s failed: %s", op, msg)
}

// DocumentID keys a record by kind so news and visualization ids never
// collide.
func DocumentID(rec models.Record) string {
	return rec.Kind.Short() + "-" + string(rec.ID)
}

// IndexRecord writes a record, replacing any earlier version with the
// same kind and id.
func (c *Client) IndexRecord(ctx context.Context, rec models.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("index record: empty id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: DocumentID(rec),
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index record", res)
	}
	return nil
}

// recordQuery builds the search body for params. Size is expected to be
// clamped already.
func recordQuery(params SearchParams) map[string]any {
	var must, filter []map[string]any

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{"query": params.Query, "fields": searchFields},
		})
	}
	if params.Kind != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"kind": string(params.Kind)},
		})
	}
	if params.Since != nil {
		filter = append(filter, map[string]any{
			"range": map[string]any{
				"received_at": map[string]any{"gte": params.Since.UTC().Format(time.RFC3339)},
			},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 || len(filter) > 0 {
		b := map[string]any{}
		if len(must) > 0 {
			b["must"] = must
		}
		if len(filter) > 0 {
			b["filter"] = filter
		}
		query = map[string]any{"bool": b}
	}

	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query":            query,
		"sort":             sortClause(params.Sort),
	}
}

// SearchRecords runs a record query. Size defaults to 20 and is capped
// at 1000.
func (c *Client) SearchRecords(ctx context.Context, params SearchParams) (*SearchResult, error) {
	switch {
	case params.Size <= 0:
		params.Size = 20
	case params.Size > maxPage:
		params.Size = maxPage
	}
	params.From = max(params.From, 0)

	payload, err := json.Marshal(recordQuery(params))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{
		Total: parsed.Hits.Total.Value,
		Items: make([]models.Record, 0, len(parsed.Hits.Hits)),
	}
	for _, hit := range parsed.Hits.Hits {
		out.Items = append(out.Items, hit.Source)
	}
	return out, nil
}

// sortClause turns "field:order" into an ES sort; received_at desc by default.
func sortClause(raw string) []map[string]any {
	field, order, _ := strings.Cut(raw, ":")
	if field == "" {
		field = "received_at"
	}
	if order == "" {
		order = "desc"
	}
	return []map[string]any{
		{field: map[string]any{"order": order}},
	}
}

// Snapshot pages through every stored record, oldest first, and returns
// them as a dataset payload. Records of an unknown kind or with an item
// that does not decode are skipped.
func (c *Client) Snapshot(ctx context.Context) ([]byte, error) {
	ds := models.Dataset{
		NewsArticles:   []models.NewsArticle{},
		Visualizations: []models.Visualization{},
	}

	skipped := 0
	for from := 0; from < maxWindow; from += snapshotPage {
		res, err := c.SearchRecords(ctx, SearchParams{From: from, Size: snapshotPage, Sort: "received_at:asc"})
		if err != nil {
			return nil, err
		}
		for _, rec := range res.Items {
			if !appendRecord(&ds, rec) {
				skipped++
			}
		}
		if len(res.Items) < snapshotPage || int64(from+snapshotPage) >= res.Total {
			break
		}
	}
	if skipped > 0 {
		c.log.Warn("snapshot skipped records", slog.Int("count", skipped), slog.String("index", c.index))
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func appendRecord(ds *models.Dataset, rec models.Record) bool {
	switch rec.Kind {
	case models.KindNews:
		var a models.NewsArticle
		if err := json.Unmarshal(rec.Item, &a); err != nil {
			return false
		}
		ds.NewsArticles = append(ds.NewsArticles, a)
	case models.KindVisualization:
		var v models.Visualization
		if err := json.Unmarshal(rec.Item, &v); err != nil {
			return false
		}
		ds.Visualizations = append(ds.Visualizations, v)
	default:
		return false
	}
	return true
}

// DeleteOlderThan removes records received before now-maxAge in batches
// of batchSize, until a batch comes back short. It returns how many
// records went, including on error.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	payload, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"received_at": map[string]any{
					"lte": time.Now().Add(-maxAge).UTC().Format(time.RFC3339),
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal delete body: %w", err)
	}

	var total int64
	for {
		n, err := c.deleteBatch(ctx, payload, batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

func (c *Client) deleteBatch(ctx context.Context, payload []byte, batchSize int) (int64, error) {
	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		bytes.NewReader(payload),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithWaitForCompletion(true),
		c.es.DeleteByQuery.WithConflicts("proceed"),
		c.es.DeleteByQuery.WithScrollSize(batchSize),
		c.es.DeleteByQuery.WithMaxDocs(batchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("delete by query", res)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}
