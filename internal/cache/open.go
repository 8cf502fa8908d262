package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

// errUnknownBackend is returned by Open for unsupported backend names
var errUnknownBackend = errors.New("unknown cache backend")

// Open builds the URL cache described by cfg
func Open(ctx context.Context, cfg model.CacheConfig) (*URLCache, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewURLCache(backend, cfg.Backend, cfg.TTL), nil
}

func openBackend(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryCache(10 * time.Minute), nil
	case "disk":
		return NewDiskCache(filepath.Join(cfg.Dir, "pages")), nil
	case "sqlite":
		return OpenSQLiteCache(filepath.Join(cfg.Dir, "cache.db"))
	case "badger":
		return OpenBadgerCache(filepath.Join(cfg.Dir, "badger"))
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
		return DialRedisCache(ctx, cfg.RedisAddr)
	case "layered", "":
		store, err := OpenSQLiteCache(filepath.Join(cfg.Dir, "cache.db"))
		if err != nil {
			return nil, err
		}
		return &closingLayered{
			LayeredCache: NewLayeredCache(NewMemoryCache(10*time.Minute), store, cfg.MemoryTTL),
			store:        store,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: memory, disk, sqlite, badger, redis, layered)", errUnknownBackend, cfg.Backend)
	}
}

// closingLayered closes the persistent layer of a layered cache
type closingLayered struct {
	*LayeredCache
	store *SQLiteCache
}

func (c *closingLayered) Close() error {
	return c.store.Close()
}
