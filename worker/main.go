package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/dedupe"
	"github.com/DeafMist/vizdesk/internal/elasticsearch"
	"github.com/DeafMist/vizdesk/internal/logger"
	"github.com/DeafMist/vizdesk/internal/metrics"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/processing"
)

// rawRecord is the wire form of models.Record. received_at is parsed
// leniently; producers are not all RFC 3339 clean.
type rawRecord struct {
	ID         models.ID       `json:"id"`
	Kind       string          `json:"kind"`
	ReceivedAt string          `json:"received_at"`
	Item       json.RawMessage `json:"item"`
}

type recordIndexer interface {
	IndexRecord(ctx context.Context, rec models.Record) error
}

// stageError tags a failure with the pipeline step it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stage(name string, err error) error {
	return &stageError{stage: name, err: err}
}

type processor struct {
	log     *slog.Logger
	index   recordIndexer
	cache   *dedupe.Cache
	opts    processing.Options
	metrics *metrics.Metrics
	now     func() time.Time
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	m := metrics.New(nil)
	p := &processor{
		log:   log,
		index: esClient,
		cache: dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		opts: processing.Options{
			KeywordLimit:     cfg.KeywordLimit,
			KeywordMinLength: cfg.KeywordMinLength,
			TitleWords:       cfg.TitleWords,
		},
		metrics: m,
		now:     time.Now,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
			log.Error("metrics server", slog.Any("err", err))
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.DLQTopic(),
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.DLQTopic()),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := p.process(ctx, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !park(ctx, log, dlqWriter, deadLetter(msg, err, p.now())) {
				if ctx.Err() != nil {
					return
				}
				log.Error("DLQ write exhausted retries, message will be redelivered",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
			m.Parked()
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// deadLetter copies msg with headers describing where and why it failed.
func deadLetter(msg kafka.Message, cause error, now time.Time) kafka.Message {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(now.UTC().Format(time.RFC3339))},
	)
	var se *stageError
	if errors.As(cause, &se) {
		headers = append(headers, kafka.Header{Key: "stage", Value: []byte(se.stage)})
	}
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

// park writes to the DLQ with exponential backoff. It reports whether the
// write landed.
func park(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message) bool {
	for attempt := 0; attempt < 5; attempt++ {
		dlqErr := w.WriteMessages(ctx, msg)
		if dlqErr == nil {
			log.Info("message sent to DLQ", slog.Int("attempt", attempt+1))
			return true
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}

func (p *processor) process(ctx context.Context, msg kafka.Message) error {
	rec, err := p.normalize(msg)
	if err != nil {
		p.metrics.Failed(failedStage(err))
		return err
	}

	key := processing.BuildItemID(string(rec.Kind), string(rec.ID), string(rec.Item))
	if p.cache.IsSeen(key) {
		p.metrics.Duplicate()
		p.log.Debug("duplicate record", slog.String("kind", string(rec.Kind)), slog.String("id", string(rec.ID)))
		return nil
	}

	if err := p.index.IndexRecord(ctx, rec); err != nil {
		p.metrics.Failed("index")
		return stage("index", err)
	}

	p.cache.MarkSeen(key)
	p.metrics.Indexed(string(rec.Kind))
	p.log.Info("indexed record", slog.String("kind", string(rec.Kind)), slog.String("id", string(rec.ID)))
	return nil
}

func failedStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}

// normalize decodes a message into a Record whose item has been cleaned
// and completed. The record id always equals the item id.
func (p *processor) normalize(msg kafka.Message) (models.Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		return models.Record{}, stage("decode", err)
	}
	kind, err := models.ParseKind(raw.Kind)
	if err != nil {
		return models.Record{}, stage("decode", err)
	}
	if len(raw.Item) == 0 || string(raw.Item) == "null" {
		return models.Record{}, stage("decode", errors.New("record has no item"))
	}

	var (
		id   models.ID
		item any
	)
	switch kind {
	case models.KindNews:
		var a models.NewsArticle
		if err := json.Unmarshal(raw.Item, &a); err != nil {
			return models.Record{}, stage("decode", err)
		}
		if a.ID == "" {
			a.ID = raw.ID
		}
		if a, err = processing.NormalizeNews(a, p.opts); err != nil {
			return models.Record{}, stage("normalize", err)
		}
		if a.ID == "" {
			a.ID = models.ID(uuid.NewString())
		}
		id, item = a.ID, a
	case models.KindVisualization:
		var v models.Visualization
		if err := json.Unmarshal(raw.Item, &v); err != nil {
			return models.Record{}, stage("decode", err)
		}
		if v.ID == "" {
			v.ID = raw.ID
		}
		if v, err = processing.NormalizeVisualization(v, p.opts); err != nil {
			return models.Record{}, stage("normalize", err)
		}
		if v.ID == "" {
			v.ID = models.ID(uuid.NewString())
		}
		id, item = v.ID, v
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return models.Record{}, stage("encode", err)
	}

	ts := parseTimestamp(raw.ReceivedAt)
	if ts.IsZero() {
		ts = msg.Time
	}
	if ts.IsZero() {
		ts = p.now()
	}

	return models.Record{
		ID:         id,
		Kind:       kind,
		ReceivedAt: ts.UTC(),
		Item:       payload,
	}, nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.RFC1123Z,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}
