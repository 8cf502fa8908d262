package fetch

import (
	"context"
	"errors"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/logging"
	"go.uber.org/zap"
)

// Resolver supplies text for a URL, preferring cached content over a fresh fetch
type Resolver struct {
	cache   *cache.URLCache
	fetcher *Fetcher
	limit   int
	logger  *zap.Logger
}

// NewResolver creates a resolver. urlCache may be nil; limit bounds the returned excerpt in runes.
func NewResolver(urlCache *cache.URLCache, fetcher *Fetcher, limit int, logger *zap.Logger) *Resolver {
	return &Resolver{cache: urlCache, fetcher: fetcher, limit: limit, logger: logging.OrNop(logger)}
}

// Resolve returns up to limit runes of the page at rawURL, picking the sentences
// most relevant to query
func (r *Resolver) Resolve(ctx context.Context, rawURL, query string) (string, error) {
	if r.cache != nil {
		if content, ok := r.cache.Get(ctx, rawURL); ok {
			return extract.Excerpt(content, query, r.limit), nil
		}
	}
	if r.fetcher == nil {
		return "", errors.New("no fetcher configured")
	}

	page, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if r.cache != nil && page.Text != "" {
		md := map[string]any{"title": page.Title, "adapter": page.Adapter, "source": "fetch"}
		if err := r.cache.Set(ctx, rawURL, page.Text, cache.WithMetadata(md)); err != nil {
			r.logger.Warn("cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return extract.Excerpt(page.Text, query, r.limit), nil
}
