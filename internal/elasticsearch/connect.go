package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnreachable means Connect ran out of attempts.
var ErrUnreachable = errors.New("elasticsearch unreachable")

// Backoff drives Connect's retry loop.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff gives a freshly started cluster about three minutes.
var DefaultBackoff = Backoff{Attempts: 10, Initial: 2 * time.Second, Max: 30 * time.Second}

// Connect builds a client and waits until the cluster answers a ping,
// doubling the delay between attempts up to b.Max.
func Connect(ctx context.Context, addr, index string, log *slog.Logger, b Backoff) (*Client, error) {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	delay := b.Initial

	client, err := New(addr, index, log)
	if err != nil {
		return nil, err
	}
	log = client.log

	for i := 0; i < b.Attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr := client.Ping(pingCtx)
		cancel()
		if pingErr == nil {
			log.Info("connected to elasticsearch", slog.String("addr", addr), slog.Int("attempt", i+1))
			return client, nil
		}
		err = pingErr

		if i == b.Attempts-1 {
			break
		}
		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", pingErr),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", b.Attempts),
			slog.Duration("retry_in", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrUnreachable, b.Attempts, err)
}
