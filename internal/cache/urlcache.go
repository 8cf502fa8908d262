package cache

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"
	"time"
)

// DefaultTTL is how long page content is kept when Set is given no TTL
const DefaultTTL = 7 * 24 * time.Hour

// Entry is a cached page
type Entry struct {
	URL       string         `json:"url"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CachedAt  time.Time      `json:"cached_at"`
	ExpiresAt time.Time      `json:"expires_at,omitzero"`
}

// Stats summarizes cache usage since the URLCache was created
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Writes  int64 `json:"writes"`
	Entries int   `json:"entries"` // -1 when the backend cannot count
}

// URLCache caches page content by URL on top of a byte Cache
type URLCache struct {
	backend    Cache
	name       string
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

// NewURLCache wraps backend; name labels errors and metrics. defaultTTL <= 0 uses DefaultTTL.
func NewURLCache(backend Cache, name string, defaultTTL time.Duration) *URLCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &URLCache{backend: backend, name: name, defaultTTL: defaultTTL}
}

// SetOption configures a single Set call
type SetOption func(*setOptions)

type setOptions struct {
	ttl      time.Duration
	ttlSet   bool
	metadata map[string]any
}

// WithTTL sets the entry lifetime; 0 keeps the entry until deleted
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
		o.ttlSet = true
	}
}

// WithMetadata attaches metadata to the entry
func WithMetadata(md map[string]any) SetOption {
	return func(o *setOptions) { o.metadata = md }
}

// Get returns cached content for url
func (c *URLCache) Get(ctx context.Context, url string) (string, bool) {
	entry, ok := c.Lookup(ctx, url)
	if !ok {
		return "", false
	}
	return entry.Content, true
}

// Lookup returns the full cached entry for url, counting a hit or miss
func (c *URLCache) Lookup(ctx context.Context, url string) (*Entry, bool) {
	entry, ok := c.load(ctx, url)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

// Has reports whether url is cached without counting a hit
func (c *URLCache) Has(ctx context.Context, url string) bool {
	_, ok := c.load(ctx, url)
	return ok
}

// Set caches content for url. Re-setting a URL replaces the entry.
func (c *URLCache) Set(ctx context.Context, url, content string, opts ...SetOption) error {
	o := setOptions{ttl: c.defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	ttl := o.ttl
	if o.ttlSet && ttl <= 0 {
		ttl = NoExpiration
	}

	now := time.Now()
	entry := Entry{
		URL:       url,
		Content:   content,
		Metadata:  o.metadata,
		CachedAt:  now,
		ExpiresAt: expiresAt(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &PersistenceError{Store: c.name, Op: "set", Key: url, Err: err}
	}
	if err := c.backend.Set(ctx, CacheKey(url), data, ttl); err != nil {
		return &PersistenceError{Store: c.name, Op: "set", Key: url, Err: err}
	}

	c.writes.Add(1)
	return nil
}

// Delete removes url from the cache
func (c *URLCache) Delete(ctx context.Context, url string) error {
	if err := c.backend.Delete(ctx, CacheKey(url)); err != nil {
		return &PersistenceError{Store: c.name, Op: "delete", Key: url, Err: err}
	}
	return nil
}

// Clear removes every entry
func (c *URLCache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return &PersistenceError{Store: c.name, Op: "clear", Err: err}
	}
	return nil
}

// PurgeExpired removes expired entries from backends that keep them around
func (c *URLCache) PurgeExpired(ctx context.Context) (int, error) {
	p, ok := c.backend.(Purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeExpired(ctx)
}

// Stats reports hit counts and the number of live entries
func (c *URLCache) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Writes:  c.writes.Load(),
		Entries: -1,
	}
	if sizer, ok := c.backend.(Sizer); ok {
		if n, err := sizer.Len(ctx); err == nil {
			s.Entries = n
		}
	}
	return s
}

// Close releases the backend
func (c *URLCache) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *URLCache) load(ctx context.Context, url string) (*Entry, bool) {
	data, ok := c.backend.Get(ctx, CacheKey(url))
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if expired(entry.ExpiresAt) {
		return nil, false
	}
	return &entry, true
}
