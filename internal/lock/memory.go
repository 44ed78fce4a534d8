package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker using in-memory locks.
// Suitable for single-node deployments; locks are not shared across
// process restarts or multiple instances.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks: make(map[string]time.Time),
	}

	go ml.cleanupLoop()

	return ml
}

// cleanupLoop periodically removes expired locks.
func (m *MemoryLocker) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for key, expiresAt := range m.locks {
			if now.After(expiresAt) {
				delete(m.locks, key)
			}
		}
		m.mu.Unlock()
	}
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if expiresAt, exists := m.locks[key]; exists && now.Before(expiresAt) {
		return false, nil
	}

	m.locks[key] = now.Add(ttl)
	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := m.Acquire(ctx, key, ttl)
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

// Release releases a lock.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.locks[key]; exists {
		delete(m.locks, key)
		return true, nil
	}

	return false, nil
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
