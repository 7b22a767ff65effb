package scrape

import (
	"sync"
	"time"

	"github.com/hazyhaar/homed/internal/record"
	"github.com/hazyhaar/homed/internal/service"
)

// DefaultTTL is the cache validity window.
const DefaultTTL = 2 * time.Minute

type cacheEntry struct {
	data      []record.Record
	timestamp time.Time
}

// Cache maps a service to its last successful scrape result. Entries at or
// past the TTL are treated as absent. At most one entry per service, so the
// map stays bounded by the service table.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[service.Name]cacheEntry
}

// NewCache creates a Cache with the given TTL. A non-positive TTL uses
// DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[service.Name]cacheEntry),
	}
}

// Get returns the cached records for a service, or false when absent or
// expired.
func (c *Cache) Get(svc service.Name) ([]record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[svc]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		delete(c.entries, svc)
		return nil, false
	}
	return e.data, true
}

// Put stores a successful scrape result, overwriting any prior entry.
func (c *Cache) Put(svc service.Name, data []record.Record) {
	c.mu.Lock()
	c.entries[svc] = cacheEntry{data: data, timestamp: c.now()}
	c.mu.Unlock()
}

// Invalidate drops a service's entry, forcing the next FetchOrScrape to
// perform I/O. Called when a backing tab navigates to new content.
func (c *Cache) Invalidate(svc service.Name) {
	c.mu.Lock()
	delete(c.entries, svc)
	c.mu.Unlock()
}
