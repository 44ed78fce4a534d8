package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this instance still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker implements Locker using Redis SET NX with per-instance
// ownership tokens, so one instance cannot release another's lock.
type RedisLocker struct {
	client *redis.Client
	token  string
}

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		token:  uuid.NewString(),
	}
}

// Acquire attempts to acquire a lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, l.token, ttl).Result()
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// Release releases a lock if this instance holds it.
func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, l.token).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// Ensure RedisLocker implements Locker.
var _ Locker = (*RedisLocker)(nil)
