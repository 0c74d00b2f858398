// Package cache defines the port interface for the report result cache.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching with a per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionKey is the key under which a session's latest report is cached.
func SessionKey(sessionID string) string {
	return "session." + sessionID
}
