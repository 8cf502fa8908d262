package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache stores one JSON file per entry
type DiskCache struct {
	dir string
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

type diskEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool) {
	entry, err := c.read(c.path(key))
	if err != nil {
		return nil, false
	}

	if expired(entry.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false
	}

	return entry.Data, true
}

// Set stores a value in the disk cache
func (c *DiskCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(diskEntry{Data: value, ExpiresAt: expiresAt(ttl)})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all cached files
func (c *DiskCache) Clear(context.Context) error {
	return os.RemoveAll(c.dir)
}

// Len counts unexpired entries
func (c *DiskCache) Len(ctx context.Context) (int, error) {
	n := 0
	err := c.walk(ctx, func(path string, entry diskEntry) {
		if !expired(entry.ExpiresAt) {
			n++
		}
	})
	return n, err
}

// PurgeExpired removes expired entry files
func (c *DiskCache) PurgeExpired(ctx context.Context) (int, error) {
	n := 0
	err := c.walk(ctx, func(path string, entry diskEntry) {
		if expired(entry.ExpiresAt) && os.Remove(path) == nil {
			n++
		}
	})
	return n, err
}

func (c *DiskCache) walk(ctx context.Context, fn func(path string, entry diskEntry)) error {
	files, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".cache") {
			continue
		}
		path := filepath.Join(c.dir, f.Name())
		entry, err := c.read(path)
		if err != nil {
			continue
		}
		fn(path, entry)
	}
	return nil
}

func (c *DiskCache) read(path string) (diskEntry, error) {
	var entry diskEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(data, &entry)
	return entry, err
}

// path maps a key to a file name; ':' is not portable in file names
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_")+".cache")
}
