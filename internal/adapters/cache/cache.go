// Package cache provides the in-memory, TTL-keyed store for search results
// and geocoding lookups.
//
// Expiry is enforced twice: lazily on read, and by a background sweep that
// bounds memory growth even when read traffic is low.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Default cache configuration constants.
const (
	// DefaultSearchTTL covers combined search payloads.
	DefaultSearchTTL = 5 * time.Minute
	// DefaultGeocodeTTL covers geocoding lookups; addresses rarely change.
	DefaultGeocodeTTL = 7 * 24 * time.Hour

	defaultSweepInterval = 60 * time.Second
)

// entry is a single cached payload with its bookkeeping.
type entry struct {
	payload      any
	createdAt    time.Time
	expiresAt    time.Time
	hits         int64
	lastAccessed time.Time
}

// Stats summarizes the cache contents for operator visibility.
type Stats struct {
	Entries   int        `json:"entries"`
	Active    int        `json:"active"`
	Expired   int        `json:"expired"`
	TotalHits int64      `json:"totalHits"`
	Oldest    *time.Time `json:"oldest,omitempty"`
	Newest    *time.Time `json:"newest,omitempty"`
}

// Cache is a concurrency-safe TTL store. The zero value is not usable;
// construct with New.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	defaultTTL time.Duration

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once

	now func() time.Time
}

// New creates a cache with configuration options and starts its sweeper.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]*entry),
		defaultTTL:    DefaultSearchTTL,
		sweepInterval: defaultSweepInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.sweepLoop()

	return c
}

// Get returns the payload for key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	e.hits++
	e.lastAccessed = now
	return e.payload, true
}

// Set stores payload under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, payload any) {
	c.SetTTL(ctx, key, payload, c.defaultTTL)
}

// SetTTL stores payload under key with an explicit TTL.
func (c *Cache) SetTTL(ctx context.Context, key string, payload any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		payload:      payload,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// Delete removes a single entry; it reports whether one existed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// InvalidateByPrefix removes every entry whose key starts with prefix and
// returns the number removed.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and returns the number removed.
func (c *Cache) Clear(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	return n
}

// Len returns the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports entry counts, hit totals and creation bounds.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	s := Stats{Entries: len(c.entries)}

	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			s.Expired++
		} else {
			s.Active++
		}
		s.TotalHits += e.hits

		created := e.createdAt
		if s.Oldest == nil || created.Before(*s.Oldest) {
			t := created
			s.Oldest = &t
		}
		if s.Newest == nil || created.After(*s.Newest) {
			t := created
			s.Newest = &t
		}
	}

	return s
}

// Close stops the background sweeper. Entries remain readable.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// sweepLoop periodically removes expired entries, independent of reads.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries and returns the number removed.
func (c *Cache) sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
