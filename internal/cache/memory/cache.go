// Package memory provides an in-memory cache implementation.
// This is suitable for single-node deployments where Redis is not available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/teamledger/internal/repository"
)

// Cache implements repository.Cache using in-memory storage.
// This is NOT suitable for distributed deployments.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	stopCh  chan struct{}
	stopped bool
}

// cacheItem represents a single cached item.
type cacheItem struct {
	value     []byte
	expiresAt time.Time
	noExpiry  bool
}

// isExpired checks if the item has expired.
func (i *cacheItem) isExpired() bool {
	if i.noExpiry {
		return false
	}
	return time.Now().After(i.expiresAt)
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	c := &Cache{
		items:  make(map[string]*cacheItem),
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// cleanupLoop periodically removes expired items.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired items.
func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.isExpired() {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || item.isExpired() {
		return nil, repository.ErrCacheMiss
	}

	// Return a copy so callers can't mutate the cached value.
	value := make([]byte, len(item.value))
	copy(value, item.value)

	return value, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	item := &cacheItem{value: stored}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	} else {
		item.noExpiry = true
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()

	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()

	return nil
}

// Exists checks if a key exists.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	return exists && !item.isExpired(), nil
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
