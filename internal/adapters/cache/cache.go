// Package cache holds the top-N leaderboard snapshot behind a TTL.
//
// Policy: invalidate-on-write plus TTL-on-read. The cache is a performance
// optimization only; it is never consulted for write decisions and a cache
// fault must never fail a read path.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

const defaultTTL = 5 * time.Minute

// Cache stores and serves the top-N snapshot.
type Cache interface {
	// Get returns the snapshot. The second return is false when the cache
	// is empty or the snapshot is past its TTL.
	Get(ctx context.Context) (model.Snapshot, bool, error)

	// Replace overwrites the snapshot wholesale and stamps CapturedAt.
	Replace(ctx context.Context, snap model.Snapshot) error

	// Invalidate removes the snapshot immediately, independent of TTL.
	Invalidate(ctx context.Context) error
}

// SnapshotCache implements Cache in process memory. Replace is atomic: a
// reader observes either the full previous snapshot or the full new one.
type SnapshotCache struct {
	mu   sync.RWMutex
	snap model.Snapshot
	held bool

	ttl time.Duration
	now func() time.Time
}

// New creates a cache with configuration options.
func New(opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		ttl: defaultTTL,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the snapshot if present and fresh.
func (c *SnapshotCache) Get(ctx context.Context) (model.Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.held || c.now().Sub(c.snap.CapturedAt) >= c.ttl {
		metrics.RecordCacheMiss()
		return model.Snapshot{}, false, nil
	}

	metrics.RecordCacheHit()
	return c.snap, true, nil
}

// Replace overwrites the snapshot wholesale and resets CapturedAt to now.
func (c *SnapshotCache) Replace(ctx context.Context, snap model.Snapshot) error {
	entries := make([]model.LeaderboardEntry, len(snap.Entries))
	copy(entries, snap.Entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = model.Snapshot{Entries: entries, CapturedAt: c.now()}
	c.held = true
	return nil
}

// Invalidate removes the snapshot immediately.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held {
		metrics.RecordCacheInvalidation()
	}
	c.snap = model.Snapshot{}
	c.held = false
	return nil
}
