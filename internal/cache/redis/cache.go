// Package redis provides a Redis-backed cache implementation for
// multi-node deployments.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/config"
	"github.com/prn-tf/teamledger/internal/repository"
)

// Cache implements repository.Cache using Redis.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient creates a Redis client from configuration and verifies the
// connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("connected to Redis")

	return client, nil
}

// NewCache creates a new Redis-backed cache.
func NewCache(client *redis.Client, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger.With().Str("component", "redis_cache").Logger(),
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return nil, repository.ErrCacheUnavailable
	}
	return value, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return repository.ErrCacheUnavailable
	}
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		return repository.ErrCacheUnavailable
	}
	return nil
}

// Exists checks if a key exists.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, repository.ErrCacheUnavailable
	}
	return n > 0, nil
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
