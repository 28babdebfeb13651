// Package views names the cached read views the HTTP layer serves and
// defines the invalidation contract mutating services honor. Every
// committed mutation notifies the views it staled; the cache backend
// drops them so the next read rebuilds from the database.
package views

import (
	"context"
	"time"
)

// View names. These are cache key prefixes, shared between the
// invalidator and the HTTP read handlers.
const (
	ActiveOrders = "views:orders:active"
	Inventory    = "views:inventory"
	Sales        = "views:sales"
)

// Invalidator drops cached views after a mutation commits. Failures
// are the implementation's problem to log; staleness is bounded by TTL
// either way, so callers never branch on invalidation errors.
type Invalidator interface {
	Invalidate(ctx context.Context, viewNames ...string)
}

// SnapshotStore caches serialized view payloads between invalidations.
// TTL bounds staleness when an invalidation is lost.
type SnapshotStore interface {
	Snapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	GetSnapshot(ctx context.Context, key string) ([]byte, bool, error)
}

// Noop satisfies Invalidator and SnapshotStore for tests and cache-less
// deployments. Every read is a miss.
type Noop struct{}

func (Noop) Invalidate(context.Context, ...string) {}

func (Noop) Snapshot(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (Noop) GetSnapshot(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}
