package memory

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache implementing app.Cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock allows deterministic expiry in tests.
func NewCacheWithClock(clock func() time.Time) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), clock: clock}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !entry.expiresAt.After(c.clock()) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
