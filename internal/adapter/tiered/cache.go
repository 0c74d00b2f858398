// Package tiered layers the in-process session cache over the shared one.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentShift/internal/port/cache"
)

// Cache reads from L1 first and falls back to L2, backfilling L1 on an L2
// hit. L2 is authoritative: writes that reach L2 succeed even if L1
// refuses them, and an L1 fault never hides an L2 entry.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache. l1Expire caps how long entries live in L1, so
// an entry deleted or expired in L2 cannot outlive it there by more than that.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "l1 cache get failed", "key", key, "error", err)
	} else if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := c.l1.Set(ctx, key, val, c.l1Expire); err != nil {
		slog.DebugContext(ctx, "l1 backfill skipped", "key", key, "error", err)
	}
	return val, true, nil
}

// Set writes L1 and then L2. Only an L2 failure is returned, so the caller
// can flag the result as degraded when other replicas cannot see it.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, min(ttl, c.l1Expire)); err != nil {
		slog.DebugContext(ctx, "l1 cache set skipped", "key", key, "error", err)
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes the key from both levels and reports every failure.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.l1.Delete(ctx, key), c.l2.Delete(ctx, key))
}
