// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"fmt"
	"time"
)

// Locker defines the interface for distributed/local locking.
// This abstraction allows switching between in-memory locks (single-node)
// and Redis-based locks (distributed) without changing business logic.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held elsewhere.
	// The lock automatically expires after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// CategoryCreate returns a lock key serializing category creation within
// a team, so two requests cannot race past the duplicate-name check.
func (lockKeys) CategoryCreate(teamID int64) string {
	return fmt.Sprintf("lock:category:create:%d", teamID)
}

// TeamCreate returns a lock key serializing team creation by one creator.
func (lockKeys) TeamCreate(creatorID int64) string {
	return fmt.Sprintf("lock:team:create:%d", creatorID)
}
