package index

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
)

// Open builds the index described by cfg. The Qdrant backend embeds with OpenAI using apiKey.
func Open(cfg model.IndexConfig, apiKey string, proxy model.HTTPConfig) (Index, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return NewMemoryIndex(), nil
	case "qdrant":
		embedder, err := NewOpenAIEmbedder(EmbedderConfig{
			APIKey:     apiKey,
			Model:      cfg.EmbeddingModel,
			HTTPProxy:  proxy.HTTPProxy,
			HTTPSProxy: proxy.HTTPSProxy,
			NoProxy:    proxy.NoProxy,
		})
		if err != nil {
			return nil, err
		}
		httpClient := &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy),
			},
		}
		return NewQdrantIndex(cfg.URL, cfg.Collection, cfg.Dimensions, embedder, httpClient)
	default:
		return nil, fmt.Errorf("unknown index backend: %q (supported: memory, qdrant)", cfg.Backend)
	}
}
