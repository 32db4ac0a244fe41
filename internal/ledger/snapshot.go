package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyhall/progress-ledger/internal/platform/cache"
)

// SnapshotCache keeps short-lived progress snapshots in Redis so hot
// GetProgress reads skip the database. Entries are invalidated after every
// committed submission; the TTL bounds staleness if invalidation is missed.
// A nil *SnapshotCache is a no-op, so wiring it stays optional.
type SnapshotCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSnapshotCache creates a progress snapshot cache.
func NewSnapshotCache(c *cache.Cache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: c, ttl: ttl}
}

func snapshotKey(userID, subject string) string {
	return fmt.Sprintf("ledger:progress:%s:%s", userID, subject)
}

// Get returns a cached snapshot, or nil on miss or cache trouble.
func (sc *SnapshotCache) Get(ctx context.Context, userID, subject string) *ProgressRecord {
	if sc == nil {
		return nil
	}
	var rec ProgressRecord
	if err := sc.cache.GetJSON(ctx, snapshotKey(userID, subject), &rec); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("progress snapshot read failed", "error", err)
		}
		return nil
	}
	return &rec
}

// Put stores a snapshot. Failures are logged, never surfaced.
func (sc *SnapshotCache) Put(ctx context.Context, rec ProgressRecord) {
	if sc == nil {
		return
	}
	if err := sc.cache.SetJSON(ctx, snapshotKey(rec.UserID, rec.Subject), rec, sc.ttl); err != nil {
		slog.Warn("progress snapshot write failed", "error", err)
	}
}

// Invalidate drops the snapshot for one (user, subject) pair.
func (sc *SnapshotCache) Invalidate(ctx context.Context, userID, subject string) {
	if sc == nil {
		return
	}
	if err := sc.cache.Delete(ctx, snapshotKey(userID, subject)); err != nil {
		slog.Warn("progress snapshot invalidation failed", "error", err)
	}
}
