// Package gallery implements the carousel over the visualization
// collection and the three views that follow its current item: the
// slider viewport, the thumbnail strip and the featured grid.
//
// A carousel is either idle or running exactly one transition. Advance
// holds the in-flight guard from the start of the transition until every
// view has been synced with the committed index; calls that arrive
// meanwhile are dropped with ErrBusy, never queued.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/DeafMist/vizdesk/internal/models"
)

var (
	ErrEmpty      = errors.New("gallery has no items")
	ErrBusy       = errors.New("transition in progress")
	ErrOutOfRange = errors.New("index out of range")
	ErrDirection  = errors.New("direction must be -1 or 1")
)

// State is what the views render.
type State struct {
	Index     int
	Prev      int
	Next      int
	Count     int
	Animating bool
	// Direction of the running transition, 0 when settled.
	Direction int
}

// View follows the carousel. Sync is called with the carousel lock held
// and must not call back into the carousel.
type View interface {
	Sync(State)
}

// Prefetcher warms image resources. It must not block.
type Prefetcher interface {
	Prefetch(urls ...string)
}

// Options configure a Carousel. Nil fields get no-op defaults.
type Options struct {
	Animator   Animator
	Prefetcher Prefetcher
	Views      []View
	Logger     *slog.Logger
}

// Carousel owns the current index over a fixed item list.
type Carousel struct {
	items    []models.Visualization
	animator Animator
	prefetch Prefetcher
	views    []View
	log      *slog.Logger

	mu        sync.Mutex
	index     int
	animating bool
	direction int
}

// New creates a carousel at index 0, syncs every view and prefetches the
// neighbours. An empty collection has no carousel.
func New(items []models.Visualization, opts Options) (*Carousel, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	if opts.Animator == nil {
		opts.Animator = Instant{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Carousel{
		items:    append([]models.Visualization(nil), items...),
		animator: opts.Animator,
		prefetch: opts.Prefetcher,
		views:    opts.Views,
		log:      opts.Logger,
	}

	c.mu.Lock()
	c.syncLocked()
	c.mu.Unlock()
	c.prefetchNeighbours(0)
	return c, nil
}

// Len returns the number of items.
func (c *Carousel) Len() int {
	return len(c.items)
}

// Items returns the items in carousel order.
func (c *Carousel) Items() []models.Visualization {
	return append([]models.Visualization(nil), c.items...)
}

// State returns the current state.
func (c *Carousel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Current returns the item at the current index.
func (c *Carousel) Current() models.Visualization {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[c.index]
}

// Advance moves one step in dir (-1 or 1). It blocks until the animator
// reports the transition finished, then commits the index and syncs the
// views. While a transition runs, further calls return ErrBusy. If the
// animation fails (for example ctx ends) the index is left unchanged.
func (c *Carousel) Advance(ctx context.Context, dir int) error {
	if dir != 1 && dir != -1 {
		return fmt.Errorf("%w: %d", ErrDirection, dir)
	}

	c.mu.Lock()
	if c.animating {
		c.mu.Unlock()
		return ErrBusy
	}
	n := len(c.items)
	from := c.index
	to := (from + dir + n) % n
	c.animating = true
	c.direction = dir
	c.syncLocked()
	c.mu.Unlock()

	err := c.animator.Animate(ctx, Transition{From: from, To: to, Direction: dir})

	c.mu.Lock()
	if err == nil {
		c.index = to
	}
	c.direction = 0
	c.animating = false
	c.syncLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Debug("transition aborted", slog.Int("from", from), slog.Int("to", to), slog.Any("err", err))
		return fmt.Errorf("advance %d -> %d: %w", from, to, err)
	}
	c.prefetchNeighbours(to)
	return nil
}

// JumpTo moves to index. Immediate neighbours animate through Advance,
// forward first when both apply; any other index is set at once and the
// views are synced before JumpTo returns. Out-of-range indices change
// nothing.
func (c *Carousel) JumpTo(ctx context.Context, index int) error {
	n := len(c.items)
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, n)
	}

	c.mu.Lock()
	if c.animating {
		c.mu.Unlock()
		return ErrBusy
	}
	current := c.index
	switch {
	case index == current:
		c.mu.Unlock()
		return nil
	case (index-current+n)%n == 1:
		c.mu.Unlock()
		return c.Advance(ctx, 1)
	case (current-index+n)%n == 1:
		c.mu.Unlock()
		return c.Advance(ctx, -1)
	}
	c.index = index
	c.syncLocked()
	c.mu.Unlock()

	c.prefetchNeighbours(index)
	return nil
}

func (c *Carousel) stateLocked() State {
	n := len(c.items)
	return State{
		Index:     c.index,
		Prev:      (c.index - 1 + n) % n,
		Next:      (c.index + 1) % n,
		Count:     n,
		Animating: c.animating,
		Direction: c.direction,
	}
}

func (c *Carousel) syncLocked() {
	s := c.stateLocked()
	for _, v := range c.views {
		v.Sync(s)
	}
}

// prefetchNeighbours warms the previous and next images of index.
func (c *Carousel) prefetchNeighbours(index int) {
	if c.prefetch == nil {
		return
	}
	n := len(c.items)
	var urls []string
	for _, i := range []int{(index - 1 + n) % n, (index + 1) % n} {
		if i == index {
			continue
		}
		u := c.items[i].ImageURL
		if u == "" || (len(urls) > 0 && urls[0] == u) {
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) > 0 {
		c.prefetch.Prefetch(urls...)
	}
}

// SwipeThreshold is the horizontal distance a swipe must cover.
const SwipeThreshold = 40

// SwipeDirection maps a horizontal drag to an Advance direction: a drag to
// the right goes back, to the left goes forward, short drags do nothing.
func SwipeDirection(dx int) int {
	switch {
	case dx > SwipeThreshold:
		return -1
	case dx < -SwipeThreshold:
		return 1
	}
	return 0
}
