package gallery

import (
	"context"
	"time"
)

// DefaultDuration is the length of a Timed transition when none is set.
const DefaultDuration = 520 * time.Millisecond

// Transition is one step of the carousel.
type Transition struct {
	From      int
	To        int
	Direction int
}

// Animator runs a transition and returns once it has finished. A non-nil
// error means the transition did not complete.
type Animator interface {
	Animate(ctx context.Context, t Transition) error
}

// AnimatorFunc adapts a function to Animator.
type AnimatorFunc func(ctx context.Context, t Transition) error

// Animate implements Animator.
func (f AnimatorFunc) Animate(ctx context.Context, t Transition) error {
	return f(ctx, t)
}

// Instant completes every transition immediately.
type Instant struct{}

// Animate implements Animator.
func (Instant) Animate(ctx context.Context, _ Transition) error {
	return ctx.Err()
}

// Timed completes a transition after Duration.
type Timed struct {
	Duration time.Duration
}

// Animate implements Animator.
func (a Timed) Animate(ctx context.Context, _ Transition) error {
	d := a.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
