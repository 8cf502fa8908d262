package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/veritas/internal/model"
)

func modelCacheConfig(dir, backend string) model.CacheConfig {
	return model.CacheConfig{
		Enabled:   true,
		Backend:   backend,
		Dir:       dir,
		TTL:       time.Hour,
		MemoryTTL: time.Minute,
	}
}

func TestURLCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewURLCache(NewMemoryCache(time.Minute), "memory", 0)

	if _, ok := c.Get(ctx, "https://nasa.gov/mars"); ok {
		t.Fatal("expected miss")
	}

	md := map[string]any{"claim_id": "claim_1", "agent": "pro"}
	if err := c.Set(ctx, "https://nasa.gov/mars", "Mars has two moons.", WithMetadata(md)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entry, ok := c.Lookup(ctx, "https://nasa.gov/mars")
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Content != "Mars has two moons." {
		t.Errorf("Content = %q", entry.Content)
	}
	if diff := cmp.Diff(md, entry.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if d := time.Until(entry.ExpiresAt); d < DefaultTTL-time.Minute || d > DefaultTTL {
		t.Errorf("default expiry %v, want about %v", d, DefaultTTL)
	}

	if !c.Has(ctx, "https://nasa.gov/mars") {
		t.Error("Has should report cached URL")
	}

	want := Stats{Hits: 1, Misses: 1, Writes: 1, Entries: 1}
	if diff := cmp.Diff(want, c.Stats(ctx)); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestURLCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewURLCache(NewMemoryCache(time.Minute), "memory", time.Hour)

	_ = c.Set(ctx, "https://a.example", "a", WithTTL(time.Millisecond))
	_ = c.Set(ctx, "https://b.example", "b", WithTTL(0))
	time.Sleep(5 * time.Millisecond)

	if c.Has(ctx, "https://a.example") {
		t.Error("short TTL entry should expire")
	}

	entry, ok := c.Lookup(ctx, "https://b.example")
	if !ok {
		t.Fatal("zero TTL entry should not expire")
	}
	if !entry.ExpiresAt.IsZero() {
		t.Errorf("zero TTL should leave ExpiresAt unset, got %v", entry.ExpiresAt)
	}
}

type failingCache struct{ MemoryCache }

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk full")
}

func TestURLCache_PersistenceError(t *testing.T) {
	c := NewURLCache(&failingCache{}, "broken", 0)

	err := c.Set(context.Background(), "https://nasa.gov", "x")
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if perr.Store != "broken" || perr.Key != "https://nasa.gov" {
		t.Errorf("unexpected error fields: %+v", perr)
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("https://nasa.gov")
	if a != CacheKey("https://nasa.gov") {
		t.Error("CacheKey should be deterministic")
	}
	if a == CacheKey("https://nasa.gov/") {
		t.Error("different URLs should have different keys")
	}
	if len(a) != len(KeyPrefix)+64 {
		t.Errorf("unexpected key length %d", len(a))
	}
}
