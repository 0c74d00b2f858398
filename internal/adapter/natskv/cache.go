// Package natskv implements the cache port using NATS JetStream KV as the
// shared L2 result cache.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// Cache wraps a NATS JetStream KeyValue store as an L2 cache.
type Cache struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// New creates a NATS KV-backed cache over an existing bucket.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Dial connects to NATS and ensures the bucket exists with the given TTL.
// Every entry in the bucket expires after ttl regardless of the per-call TTL.
func Dial(ctx context.Context, url, bucket string, ttl time.Duration) (*Cache, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		TTL:     ttl,
		History: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream kv %s: %w", bucket, err)
	}

	slog.Info("nats kv connected", "url", url, "bucket", bucket, "ttl", ttl)
	return &Cache{kv: kv, nc: nc}, nil
}

// Get retrieves a value from the NATS KV store.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, errors.Join(domain.ErrCacheUnavailable, err))
	}
	return entry.Value(), true, nil
}

// Set stores a value in the NATS KV store. TTL is managed at bucket level.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, errors.Join(domain.ErrCacheUnavailable, err))
	}
	return nil
}

// Delete removes a value from the NATS KV store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if err == nil || errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return fmt.Errorf("kv delete %s: %w", key, errors.Join(domain.ErrCacheUnavailable, err))
}

// Close drains the connection opened by Dial.
func (c *Cache) Close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}
