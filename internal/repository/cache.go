// Package repository defines data access interfaces for TeamLedger.
package repository

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The redis package
// implements it for multi-node deployments; the memory package for
// single-node ones. The team service uses it to keep hot team lookups off
// the database.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheError represents a cache error type.
type CacheError string

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"

	// ErrCacheUnavailable indicates the cache is unavailable.
	ErrCacheUnavailable CacheError = "cache unavailable"
)

func (e CacheError) Error() string {
	return string(e)
}
