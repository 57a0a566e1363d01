package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/homestay"
)

const snapshotKey = "snapshot"

// Memory is an in-process Store backed by patrickmn/go-cache.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-memory store whose entry lives for ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = constants.CacheTTL
	}
	return &Memory{
		store: gocache.New(ttl, constants.CacheCleanupInterval),
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context) (*homestay.Snapshot, bool, error) {
	v, ok := m.store.Get(snapshotKey)
	if !ok {
		return nil, false, nil
	}
	snap, ok := v.(*homestay.Snapshot)
	return snap, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, snap *homestay.Snapshot) error {
	m.store.Set(snapshotKey, snap, gocache.DefaultExpiration)
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context) error {
	m.store.Flush()
	return nil
}

// Backend implements Store.
func (m *Memory) Backend() string { return "memory" }

// ItemCount returns the number of live entries (0 or 1).
func (m *Memory) ItemCount() int {
	return m.store.ItemCount()
}
