// Package cache holds the single most recent report snapshot between
// upstream fetches. Entries expire after a TTL; failures are never stored.
package cache

import (
	"context"

	"github.com/agentstation/homestay/pkg/homestay"
)

// Store is a single-entry, TTL-bounded snapshot cache. Implementations are
// safe for concurrent use.
type Store interface {
	// Get returns the cached snapshot. ok is false on a miss or after expiry.
	Get(ctx context.Context) (snap *homestay.Snapshot, ok bool, err error)
	// Set replaces the cached snapshot and restarts its TTL.
	Set(ctx context.Context, snap *homestay.Snapshot) error
	// Clear drops the cached snapshot.
	Clear(ctx context.Context) error
	// Backend names the implementation ("memory", "redis").
	Backend() string
}
