// Package cache implements coarse invalidation over the result caches.
// Invalidation after a graph change is wholesale: every tier is cleared
// rather than picking out affected entries. Cheap to reason about, and
// the caches repopulate on the next query.
package cache

import (
	"context"
	"time"

	"codegraph/internal/logging"
	"codegraph/internal/storage"
)

// Invalidator clears all cache tiers when the graph changes.
type Invalidator struct {
	cache  *storage.Cache
	logger *logging.Logger
}

// NewInvalidator creates an invalidator over the storage cache.
func NewInvalidator(cache *storage.Cache, logger *logging.Logger) *Invalidator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invalidator{cache: cache, logger: logger}
}

// InvalidateAll clears every tier and returns the names of tiers that
// were cleared. A tier that fails to clear is logged and skipped; its
// entries stay subject to their TTL, so the failure is never fatal.
func (i *Invalidator) InvalidateAll(reason string) []string {
	cleared := make([]string, 0, len(storage.Tiers))
	removed := 0
	for _, tier := range storage.Tiers {
		n, err := i.cache.InvalidateTier(tier)
		if err != nil {
			i.logger.Warn("failed to clear cache tier", map[string]interface{}{
				"tier":  string(tier),
				"error": err.Error(),
			})
			continue
		}
		removed += n
		cleared = append(cleared, string(tier))
	}

	i.logger.Debug("caches invalidated", map[string]interface{}{
		"reason":  reason,
		"tiers":   cleared,
		"entries": removed,
	})
	return cleared
}

// RunCleanup deletes expired entries on a fixed interval until ctx is
// cancelled.
func (i *Invalidator) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := i.cache.CleanupExpired()
			if err != nil {
				i.logger.Warn("cache cleanup failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if n > 0 {
				i.logger.Debug("expired cache entries removed", map[string]interface{}{
					"entries": n,
				})
			}
		}
	}
}
