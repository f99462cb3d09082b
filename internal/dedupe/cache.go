// Package dedupe remembers recently seen keys: record ids in the worker,
// image URLs in the gallery prefetcher.
package dedupe

import (
	"sync"
	"time"
)

type stamp struct {
	key string
	at  time.Time
}

// Cache is a bounded, time-limited set of keys. Keys older than the ttl
// count as unseen; past capacity the oldest key is evicted first.
type Cache struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	order    []stamp
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		seen:     make(map[string]time.Time, capacity),
		order:    make([]stamp, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IsSeen reports whether key was marked inside the ttl window. It does not
// mark the key.
func (c *Cache) IsSeen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fresh(key, c.now())
}

// MarkSeen records key.
func (c *Cache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mark(key, c.now())
}

// MarkIfNew records key and reports true when it was not already seen,
// in one step.
func (c *Cache) MarkIfNew(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.fresh(key, now) {
		return false
	}
	c.mark(key, now)
	return true
}

// Forget drops key so the next MarkIfNew accepts it again.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
}

// Len returns the number of keys currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) fresh(key string, now time.Time) bool {
	at, ok := c.seen[key]
	return ok && now.Sub(at) <= c.ttl
}

func (c *Cache) mark(key string, now time.Time) {
	c.seen[key] = now
	c.order = append(c.order, stamp{key: key, at: now})
	c.compact(now)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.seen) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a key marked again later keeps its newer stamp
		if at, ok := c.seen[oldest.key]; ok && at.Equal(oldest.at) {
			delete(c.seen, oldest.key)
		}
	}
}
