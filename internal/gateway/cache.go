package gateway

import (
	"context"
	"sync"
	"time"
)

const (
	// CacheTTL bounds how long a rendered response is served without a new block
	CacheTTL = 30 * time.Second
	// CacheCleanupInterval is how often expired entries are dropped
	CacheCleanupInterval = time.Minute
	// MaxCacheSize is the maximum number of entries before forced cleanup
	MaxCacheSize = 10000
)

type cacheEntry struct {
	block  uint64
	expiry time.Time
	body   []byte
}

// ResponseCache is a bounded, thread-safe cache of rendered responses.
// An entry is valid only for the block it was rendered at and until its TTL.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewResponseCache creates a cache; cleanup runs until ctx is done
func NewResponseCache(ctx context.Context, ttl time.Duration, maxSize int, cleanupInterval time.Duration) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
	go c.cleanupLoop(ctx, cleanupInterval)
	return c
}

// Get returns the body cached under key for block
func (c *ResponseCache) Get(key string, block uint64) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.block != block || !c.now().Before(e.expiry) {
		return nil, false
	}
	return e.body, true
}

// Put caches body under key for block
func (c *ResponseCache) Put(key string, block uint64, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.cleanupExpiredLocked()
		// still full: drop everything rendered at an older block
		if len(c.entries) >= c.maxSize {
			for k, e := range c.entries {
				if e.block < block {
					delete(c.entries, k)
				}
			}
		}
		if len(c.entries) >= c.maxSize {
			return
		}
	}
	c.entries[key] = cacheEntry{block: block, expiry: c.now().Add(c.ttl), body: body}
}

// Size returns the current number of entries in the cache
func (c *ResponseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResponseCache) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupExpiredLocked()
			c.mu.Unlock()
		}
	}
}

// cleanupExpiredLocked removes expired entries (must be called with lock held)
func (c *ResponseCache) cleanupExpiredLocked() {
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, key)
		}
	}
}
