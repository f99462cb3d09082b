package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/dedupe"
	"github.com/DeafMist/vizdesk/internal/metrics"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/processing"
)

type stubIndexer struct {
	recs []models.Record
	err  error
}

func (s *stubIndexer) IndexRecord(_ context.Context, rec models.Record) error {
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

type stubWriter struct {
	fails int
	msgs  []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.fails > 0 {
		w.fails--
		return errors.New("broker down")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newProcessor(idx recordIndexer) *processor {
	return &processor{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		index:   idx,
		cache:   dedupe.NewCache(100, time.Hour),
		opts:    processing.Options{KeywordLimit: 5, KeywordMinLength: 3, TitleWords: 6},
		metrics: metrics.New(nil),
		now:     func() time.Time { return fixedNow },
	}
}

func message(t *testing.T, raw rawRecord) kafka.Message {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessIndexesNewsRecord(t *testing.T) {
	idx := &stubIndexer{}
	p := newProcessor(idx)

	msg := message(t, rawRecord{
		Kind:       "news",
		ReceivedAt: "2024-01-02T15:04:05Z",
		Item:       json.RawMessage(`{"title":"  Rainfall records broken  ","fullContent":"Rainfall across the valley broke records.\n\nMore at https://example.com/rain"}`),
	})

	require.NoError(t, p.process(context.Background(), msg))
	require.Len(t, idx.recs, 1)

	rec := idx.recs[0]
	require.Equal(t, models.KindNews, rec.Kind)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), rec.ReceivedAt)

	var a models.NewsArticle
	require.NoError(t, json.Unmarshal(rec.Item, &a))
	require.Equal(t, rec.ID, a.ID)
	require.Equal(t, "Rainfall records broken", a.Title)
	require.Equal(t, "https://example.com/rain", a.ExternalLink)
	require.NotEmpty(t, a.Tags)

	require.NoError(t, p.process(context.Background(), msg))
	require.Len(t, idx.recs, 1, "identical record is skipped")
}

func TestProcessKeepsRecordIDForVisualization(t *testing.T) {
	idx := &stubIndexer{}
	p := newProcessor(idx)

	msg := message(t, rawRecord{
		ID:   "42",
		Kind: "viz",
		Item: json.RawMessage(`{"summary":"Median rent by district","imageUrl":" https://cdn.example/rent.png "}`),
	})

	require.NoError(t, p.process(context.Background(), msg))
	require.Len(t, idx.recs, 1)
	rec := idx.recs[0]
	require.Equal(t, models.ID("42"), rec.ID)
	require.Equal(t, models.KindVisualization, rec.Kind)
	require.Equal(t, fixedNow, rec.ReceivedAt)

	var v models.Visualization
	require.NoError(t, json.Unmarshal(rec.Item, &v))
	require.Equal(t, "https://cdn.example/rent.png", v.ImageURL)
	require.NotEmpty(t, v.Title)
}

func TestProcessRejectsBadRecords(t *testing.T) {
	p := newProcessor(&stubIndexer{})

	cases := map[string]kafka.Message{
		"not json":     {Value: []byte("{")},
		"unknown kind": message(t, rawRecord{Kind: "podcast", Item: json.RawMessage(`{"title":"x"}`)}),
		"no item":      message(t, rawRecord{Kind: "news"}),
		"empty item":   message(t, rawRecord{Kind: "news", Item: json.RawMessage(`{"title":"  "}`)}),
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, p.process(context.Background(), msg))
		})
	}

	err := p.process(context.Background(), message(t, rawRecord{Kind: "news", Item: json.RawMessage(`{}`)}))
	require.ErrorIs(t, err, processing.ErrEmptyItem)
	require.Equal(t, "normalize", failedStage(err))
}

func TestProcessIndexFailureIsRetriable(t *testing.T) {
	idx := &stubIndexer{err: errors.New("es down")}
	p := newProcessor(idx)
	msg := message(t, rawRecord{Kind: "news", Item: json.RawMessage(`{"title":"Storm"}`)})

	err := p.process(context.Background(), msg)
	require.Error(t, err)
	require.Equal(t, "index", failedStage(err))

	idx.err = nil
	require.NoError(t, p.process(context.Background(), msg))
	require.Len(t, idx.recs, 1)
}

func TestDeadLetterHeaders(t *testing.T) {
	msg := kafka.Message{Topic: "items_raw", Partition: 2, Offset: 17, Value: []byte("{}")}
	dl := deadLetter(msg, stage("decode", errors.New("bad")), fixedNow)

	headers := map[string]string{}
	for _, h := range dl.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "2", headers["original_partition"])
	require.Equal(t, "17", headers["original_offset"])
	require.Equal(t, "decode", headers["stage"])
	require.Equal(t, "decode: bad", headers["error"])
	require.Equal(t, "2026-03-04T05:06:07Z", headers["timestamp"])
	require.Empty(t, dl.Topic)
}

func TestParkRetries(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &stubWriter{fails: 1}

	require.True(t, park(context.Background(), log, w, kafka.Message{Value: []byte("x")}))
	require.Len(t, w.msgs, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, park(ctx, log, &stubWriter{fails: 1}, kafka.Message{}))
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2024-02-03T04:05:06Z")
	require.False(t, ts.IsZero())
	require.Equal(t, 2024, ts.Year())
	require.Equal(t, time.UTC, ts.Location())
	require.Equal(t, 2, int(ts.Month()))
	require.Equal(t, 3, ts.Day())
	require.Equal(t, 4, ts.Hour())

	legacy := parseTimestamp("2024-02-03 04:05:06")
	require.False(t, legacy.IsZero())
	require.Equal(t, 6, legacy.Second())

	require.Equal(t, 2024, parseTimestamp("2024-05-01").Year())
	require.True(t, parseTimestamp("yesterday").IsZero())
	require.True(t, parseTimestamp("   ").IsZero())
}
