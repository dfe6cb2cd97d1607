// Package cache provides an in-memory TTL cache with ETag support for API
// responses. The exported data changes at most a few times per day, so
// responses are cached as marshaled bytes and revalidated with weak ETags.
package cache

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// TTLData is the lifetime of cached data responses. Long enough to absorb
// request bursts, short enough that a sync run shows up within minutes.
const TTLData = 5 * time.Minute

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
}

// Stats summarizes cache occupancy.
type Stats struct {
	Enabled     bool `json:"enabled"`
	TotalKeys   int  `json:"total_keys"`
	ActiveKeys  int  `json:"active_keys"`
	ExpiredKeys int  `json:"expired_keys"`
}

// New creates a cache. Pass enabled=false for a no-op cache that still
// computes ETags.
func New(enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
	}
	if enabled {
		go c.evictLoop()
	}
	return c
}

// Get retrieves a cached response. Returns data, etag, and whether a live
// entry was found.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores a response with a TTL and returns its ETag.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		data:      data,
		etag:      etag,
		expiresAt: time.Now().Add(ttl),
	}
	return etag
}

// Invalidate drops every cached entry. Called after an ingest run rewrites
// the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Snapshot returns current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return Stats{
		Enabled:     c.enabled,
		TotalKeys:   len(c.entries),
		ActiveKeys:  active,
		ExpiredKeys: len(c.entries) - active,
	}
}

func (c *Cache) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.evict()
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag generates a weak ETag from response data.
func ComputeETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, hash[:8])
}

// CheckETagMatch reports whether an If-None-Match header matches an ETag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return ifNoneMatch == etag
}
