package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache fronts a persistent cache with a short-lived memory layer
type LayeredCache struct {
	memory    Cache
	store     Cache
	memoryTTL time.Duration
}

// NewLayeredCache creates a layered cache. Entries stay in memory for at most memoryTTL.
func NewLayeredCache(memory, store Cache, memoryTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    memory,
		store:     store,
		memoryTTL: memoryTTL,
	}
}

// Get checks memory first, then the store, promoting store hits to memory
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.memory.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.store.Get(ctx, key); found {
		_ = c.memory.Set(ctx, key, val, c.memoryTTL)
		return val, true
	}

	return nil, false
}

// Set writes both layers; the store is authoritative
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.memory.Set(ctx, key, value, c.layerTTL(ttl))
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.memory.Delete(ctx, key), c.store.Delete(ctx, key))
}

// Clear empties both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.memory.Clear(ctx), c.store.Clear(ctx))
}

// Len reports the store's entry count when it can count
func (c *LayeredCache) Len(ctx context.Context) (int, error) {
	if s, ok := c.store.(Sizer); ok {
		return s.Len(ctx)
	}
	return 0, errors.ErrUnsupported
}

// PurgeExpired purges the store
func (c *LayeredCache) PurgeExpired(ctx context.Context) (int, error) {
	if p, ok := c.store.(Purger); ok {
		return p.PurgeExpired(ctx)
	}
	return 0, nil
}

func (c *LayeredCache) layerTTL(ttl time.Duration) time.Duration {
	if c.memoryTTL <= 0 {
		return ttl
	}
	if ttl <= 0 || ttl > c.memoryTTL {
		return c.memoryTTL
	}
	return ttl
}
