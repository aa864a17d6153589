// Package quotecache provides the in-memory TTL cache shared by all quote lookups.
package quotecache

import (
	"sync"
	"time"

	"github.com/aristath/holdings/internal/domain"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 300 * time.Second

type entry struct {
	quote     domain.Quote
	expiresAt time.Time
}

// Cache is a key -> quote store with a fixed time-to-live per entry.
// Expiry is evaluated lazily: a read at or after the expiry instant is a miss
// and evicts the entry. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits   uint64
	misses uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache whose entries live for ttl after each Set.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached quote for key, or false on a miss.
func (c *Cache) Get(key string) (domain.Quote, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(e.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return e.quote, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if !ok {
		return domain.Quote{}, false
	}
	// Re-check under the write lock: a concurrent Set may have refreshed the entry.
	if cur, still := c.entries[key]; still && !now.Before(cur.expiresAt) {
		delete(c.entries, key)
	}
	return domain.Quote{}, false
}

// Set stores quote under key, expiring TTL from now.
func (c *Cache) Set(key string, quote domain.Quote) {
	expiresAt := c.now().Add(c.ttl)

	c.mu.Lock()
	c.entries[key] = entry{quote: quote, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Sweep evicts all expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats describes cache occupancy and hit ratio.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Len returns the number of stored entries, expired ones included until evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a point-in-time view of the cache.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
