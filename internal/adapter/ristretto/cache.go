// Package ristretto implements the cache port using dgraph-io/ristretto as
// the in-process session cache.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// Cache keeps session entries in process. Entries expire after their TTL
// and may be evicted earlier under memory pressure.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache holding at most maxCostBytes of values.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 1000), // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value. Expired entries are never returned.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value for ttl and waits until it is visible, so a download
// issued right after a report finds its artifact. An entry the admission
// policy refuses fails with domain.ErrCacheUnavailable.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache set %s: ttl must be positive: %w", key, domain.ErrValidation)
	}
	accepted := c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	c.c.Wait()
	if !accepted {
		return fmt.Errorf("cache set %s: dropped: %w", key, domain.ErrCacheUnavailable)
	}
	if _, ok := c.c.Get(key); !ok {
		return fmt.Errorf("cache set %s: rejected (%d bytes): %w", key, len(value), domain.ErrCacheUnavailable)
	}
	return nil
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
