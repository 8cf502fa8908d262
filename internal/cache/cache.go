// Package cache stores fetched page content keyed by URL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NoExpiration keeps an entry until it is deleted
const NoExpiration time.Duration = 0

// Cache is a byte store with per-entry expiry. A ttl <= 0 never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Sizer is implemented by backends that can count live entries
type Sizer interface {
	Len(ctx context.Context) (int, error)
}

// Purger is implemented by backends that keep expired entries until purged
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// KeyPrefix namespaces every key written by this package
const KeyPrefix = "veritas:v1:"

// CacheKey generates a cache key from a URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// PersistenceError reports a failed cache or index write. Callers log it and carry on.
type PersistenceError struct {
	Store string
	Op    string
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Store, e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func expiresAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func expired(at time.Time) bool {
	return !at.IsZero() && time.Now().After(at)
}
