package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/AgentShift/internal/adapter/tiered"
	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/port/cache"
	"github.com/Strob0t/AgentShift/internal/port/cache/cachetest"
)

// memCache is a simple in-memory cache for testing.
type memCache struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func TestTiered_Compliance(t *testing.T) {
	cachetest.RunComplianceTests(t, tiered.New(newMemCache(), newMemCache(), time.Minute))
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()
	key := cache.SessionKey("abc")

	l2.data[key] = []byte("/artifacts/abc/report.csv")

	val, found, err := c.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected L2 hit")
	}
	if string(val) != "/artifacts/abc/report.csv" {
		t.Fatalf("unexpected value %s", val)
	}

	if _, ok := l1.data[key]; !ok {
		t.Fatal("expected L1 backfill")
	}
	if l1.ttls[key] != 5*time.Minute {
		t.Fatalf("expected backfill ttl 5m, got %v", l1.ttls[key])
	}
}

func TestTiered_SetCapsL1TTL(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	key := cache.SessionKey("abc")

	if err := c.Set(context.Background(), key, []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if l1.ttls[key] != 5*time.Minute {
		t.Errorf("L1 ttl: got %v, want 5m", l1.ttls[key])
	}
	if l2.ttls[key] != time.Hour {
		t.Errorf("L2 ttl: got %v, want 1h", l2.ttls[key])
	}
}

func TestTiered_L2SetFailureReported(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	l2.setErr = domain.ErrCacheUnavailable
	c := tiered.New(l1, l2, 5*time.Minute)
	key := cache.SessionKey("abc")

	err := c.Set(context.Background(), key, []byte("v"), time.Hour)
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if _, ok := l1.data[key]; !ok {
		t.Error("expected L1 to hold the value")
	}
}

func TestTiered_DeleteBoth(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	l1.data["key4"] = []byte("val4")
	l2.data["key4"] = []byte("val4")

	if err := c.Delete(ctx, "key4"); err != nil {
		t.Fatal(err)
	}

	if _, ok := l1.data["key4"]; ok {
		t.Fatal("expected key4 deleted from L1")
	}
	if _, ok := l2.data["key4"]; ok {
		t.Fatal("expected key4 deleted from L2")
	}
}

func TestTiered_L1FaultFallsBackToL2(t *testing.T) {
	l1 := newMemCache()
	l1.getErr = errors.New("l1 broken")
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	key := cache.SessionKey("abc")
	l2.data[key] = []byte("v")

	val, found, err := c.Get(context.Background(), key)
	if err != nil || !found || string(val) != "v" {
		t.Fatalf("Get = %q, %v, %v", val, found, err)
	}
}

func TestTiered_L1RejectionNotReported(t *testing.T) {
	l1 := newMemCache()
	l1.setErr = domain.ErrCacheUnavailable
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	key := cache.SessionKey("abc")

	if err := c.Set(context.Background(), key, []byte("v"), time.Hour); err != nil {
		t.Fatalf("expected L2 write to succeed, got %v", err)
	}
	if _, ok := l2.data[key]; !ok {
		t.Error("expected L2 to hold the value")
	}
}

func TestTiered_DeleteReachesL2WhenL1Fails(t *testing.T) {
	l1 := newMemCache()
	l1.delErr = errors.New("l1 broken")
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	l2.data["k"] = []byte("v")

	if err := c.Delete(context.Background(), "k"); err == nil {
		t.Fatal("expected the L1 failure to be reported")
	}
	if _, ok := l2.data["k"]; ok {
		t.Fatal("expected k deleted from L2")
	}
}
