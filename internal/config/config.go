// Package config reads service settings from environment variables.
// CONTENT_CONFIG may name a YAML file of defaults: a flat mapping from
// setting names (the variable names, any case) to scalars or lists.
// Environment variables win over the file, the file over built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigFile marks an unreadable or malformed CONTENT_CONFIG file.
var ErrConfigFile = errors.New("content config file")

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Content configures what the front ends load and how they pace it.
type Content struct {
	DataSource        string
	FallbackSource    string
	Placeholder       string
	PublicURL         string
	DetailDelay       time.Duration
	AnimationDuration time.Duration
	SearchDebounce    time.Duration
	PrefetchTTL       time.Duration
	StripWindow       int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Content
	BindAddr        string
	ShutdownTimeout time.Duration
}

// Browser configures the terminal front end.
type Browser struct {
	Common
	Content
	LogFile string
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	TitleWords       int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	CommitInterval   time.Duration
	MetricsAddr      string
}

// DLQTopic is where the worker parks records it could not index.
func (w *Worker) DLQTopic() string {
	return w.KafkaTopic + "_dlq"
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval    time.Duration
	MaxAge      time.Duration
	BatchSize   int
	MetricsAddr string
}

// Ingest configures the feed poller.
type Ingest struct {
	KafkaBrokers []string
	KafkaTopic   string
	Feeds        []string
	Interval     time.Duration
	FetchTimeout time.Duration
	MaxItems     int
	MetricsAddr  string
}

// LoadContent builds the Content settings.
func LoadContent() (*Content, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	return l.content()
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	content, err := l.content()
	if err != nil {
		return nil, err
	}
	c := &API{
		Common:          l.common(),
		Content:         *content,
		BindAddr:        l.getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		ShutdownTimeout: l.getDuration("API_SHUTDOWN_TIMEOUT", "10s"),
	}
	if c.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("API_SHUTDOWN_TIMEOUT must be positive")
	}
	return c, nil
}

// LoadBrowser builds the terminal front end config.
func LoadBrowser() (*Browser, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	content, err := l.content()
	if err != nil {
		return nil, err
	}
	return &Browser{
		Common:  l.common(),
		Content: *content,
		LogFile: l.getEnv("BROWSE_LOG_FILE", ""),
	}, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	c := &Worker{
		Common:           l.common(),
		KafkaBrokers:     splitAndTrim(l.getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       l.getEnv("KAFKA_TOPIC", "items_raw"),
		KafkaConsumer:    l.getEnv("KAFKA_CONSUMER_GROUP", "items-worker"),
		KeywordLimit:     l.getInt("WORKER_KEYWORD_LIMIT", 6),
		KeywordMinLength: l.getInt("WORKER_KEYWORD_MIN_LEN", 4),
		TitleWords:       l.getInt("WORKER_TITLE_WORDS", 12),
		DedupeCapacity:   l.getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        l.getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        l.getInt("WORKER_BATCH_SIZE", 10),
		CommitInterval:   l.getDuration("WORKER_COMMIT_INTERVAL", "2s"),
		MetricsAddr:      l.getEnv("WORKER_METRICS_ADDR", ":9101"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}
	if c.TitleWords <= 0 {
		return nil, fmt.Errorf("WORKER_TITLE_WORDS must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	c := &Retention{
		Common:      l.common(),
		Interval:    l.getDuration("RETENTION_CRON", "24h"),
		MaxAge:      l.getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:   l.getInt("RETENTION_BATCH_SIZE", 500),
		MetricsAddr: l.getEnv("RETENTION_METRICS_ADDR", ":9103"),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadIngest builds the feed poller config.
func LoadIngest() (*Ingest, error) {
	l, err := newLookup()
	if err != nil {
		return nil, err
	}
	c := &Ingest{
		KafkaBrokers: splitAndTrim(l.getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   l.getEnv("KAFKA_TOPIC", "items_raw"),
		Feeds:        splitAndTrim(l.getEnv("INGEST_FEEDS", "")),
		Interval:     l.getDuration("INGEST_INTERVAL", "15m"),
		FetchTimeout: l.getDuration("INGEST_FETCH_TIMEOUT", "20s"),
		MaxItems:     l.getInt("INGEST_MAX_ITEMS", 50),
		MetricsAddr:  l.getEnv("INGEST_METRICS_ADDR", ":9102"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if len(c.Feeds) == 0 {
		return nil, fmt.Errorf("INGEST_FEEDS must contain at least one feed URL")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("INGEST_FETCH_TIMEOUT must be positive")
	}
	if c.MaxItems <= 0 {
		return nil, fmt.Errorf("INGEST_MAX_ITEMS must be positive")
	}

	return c, nil
}

// lookup resolves a setting from the environment, then the config file.
type lookup struct {
	file map[string]string
}

func newLookup() (*lookup, error) {
	l := &lookup{file: map[string]string{}}
	path, ok := os.LookupEnv("CONTENT_CONFIG")
	if !ok || strings.TrimSpace(path) == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfigFile, path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrConfigFile, path, err)
	}
	for key, val := range raw {
		l.file[strings.ToUpper(strings.TrimSpace(key))] = scalar(val)
	}
	return l, nil
}

// scalar flattens a YAML value; lists become comma separated.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, scalar(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func (l *lookup) common() Common {
	return Common{
		ElasticsearchAddr:  l.getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: l.getEnv("ELASTICSEARCH_INDEX", "items"),
	}
}

func (l *lookup) content() (*Content, error) {
	c := &Content{
		DataSource:        l.getEnv("DATA_SOURCE", "data.json"),
		FallbackSource:    l.getEnv("VIZ_FALLBACK_SOURCE", "data/visualizations.json"),
		Placeholder:       l.getEnv("PLACEHOLDER_IMAGE", "Assets/images/placeholder.png"),
		PublicURL:         strings.TrimRight(l.getEnv("PUBLIC_URL", ""), "/"),
		DetailDelay:       l.getDuration("DETAIL_DELAY", "200ms"),
		AnimationDuration: l.getDuration("ANIMATION_DURATION", "520ms"),
		SearchDebounce:    l.getDuration("SEARCH_DEBOUNCE", "180ms"),
		PrefetchTTL:       l.getDuration("PREFETCH_TTL", "10m"),
		StripWindow:       l.getInt("GALLERY_STRIP_WINDOW", 5),
	}

	if c.DetailDelay <= 0 {
		return nil, fmt.Errorf("DETAIL_DELAY must be positive")
	}
	if c.AnimationDuration <= 0 {
		return nil, fmt.Errorf("ANIMATION_DURATION must be positive")
	}
	if c.SearchDebounce < 0 {
		return nil, fmt.Errorf("SEARCH_DEBOUNCE cannot be negative")
	}
	if c.PrefetchTTL <= 0 {
		return nil, fmt.Errorf("PREFETCH_TTL must be positive")
	}
	if c.StripWindow <= 0 {
		return nil, fmt.Errorf("GALLERY_STRIP_WINDOW must be positive")
	}
	return c, nil
}

func (l *lookup) getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := l.file[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (l *lookup) getInt(key string, fallback int) int {
	if parsed, err := strconv.Atoi(l.getEnv(key, "")); err == nil {
		return parsed
	}
	return fallback
}

func (l *lookup) getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(l.getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
