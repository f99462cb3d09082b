package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/metrics"
)

type stubPruner struct {
	maxAge  time.Duration
	batch   int
	deleted int64
	err     error
}

func (s *stubPruner) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.maxAge, s.batch = maxAge, batchSize
	return s.deleted, s.err
}

func TestRunOncePassesConfig(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(nil)
	cfg := &config.Retention{MaxAge: 48 * time.Hour, BatchSize: 250}
	p := &stubPruner{deleted: 12}

	require.EqualValues(t, 12, runOnce(context.Background(), log, p, m, cfg))
	require.Equal(t, 48*time.Hour, p.maxAge)
	require.Equal(t, 250, p.batch)
	require.Equal(t, 12.0, testutil.ToFloat64(m.RetentionDeleted))
}

func TestRunOnceCountsPartialProgress(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(nil)
	p := &stubPruner{deleted: 3, err: errors.New("timeout")}

	require.EqualValues(t, 3, runOnce(context.Background(), log, p, m, &config.Retention{MaxAge: time.Hour, BatchSize: 10}))
	require.Equal(t, 3.0, testutil.ToFloat64(m.RetentionDeleted))
}
