package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/fetch"
	"github.com/ppiankov/veritas/internal/index"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/research"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/search"
	"github.com/ppiankov/veritas/internal/store"
	"github.com/ppiankov/veritas/internal/worker"
	"go.uber.org/zap"
)

// app is a fully wired engine plus the resources it holds open
type app struct {
	engine   *pipeline.Engine
	renderer *pipeline.Renderer
	history  *store.SqlStore // nil when history is disabled
	closers  []io.Closer
}

// Close releases every resource the app opened
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires the engine described by cfg. Optional components that are
// disabled in cfg are left out; the engine runs without them.
func buildApp(ctx context.Context, cfg *model.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{renderer: pipeline.NewRenderer(cfg.Output.IncludeFooter, cfg.Output.TopSources)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	oracle := llm.NewClient(provider,
		llm.WithGuard(llm.NewGuard(cfg.LLM.FailureThreshold, cfg.LLM.Cooldown)),
		llm.WithLogger(logger.Named("oracle")),
		llm.WithMaxTokens(cfg.LLM.MaxTokens))

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	source, err := openSource(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}

	table := score.DefaultTable()
	if cfg.Scoring.DomainFile != "" {
		if table, err = score.LoadTable(cfg.Scoring.DomainFile); err != nil {
			return nil, fmt.Errorf("load domain table: %w", err)
		}
	}

	var urlCache *cache.URLCache
	if cfg.Cache.Enabled {
		if urlCache, err = cache.Open(ctx, cfg.Cache); err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, urlCache)
	}

	var idx index.Index
	if cfg.Index.Enabled {
		if idx, err = index.Open(cfg.Index, embeddingKey(cfg), cfg.HTTP); err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
	}

	deps := research.Deps{
		Source: source,
		Scorer: score.NewReliabilityScorer(table),
		Logger: logger.Named("research"),
	}
	if urlCache != nil || idx != nil {
		deps.Recorder = research.NewRecorder(urlCache, idx, logger.Named("recorder"))
	}
	if cfg.Fetch.Enabled {
		fetcher := fetch.NewFetcher(cfg.Fetch, cfg.HTTP, limiter, logger.Named("fetch"))
		deps.Resolver = fetch.NewResolver(urlCache, fetcher, cfg.Research.ContentLimit, logger.Named("fetch"))
	}

	filters := search.Filters{
		IncludeDomains: cfg.Search.IncludeDomains,
		ExcludeDomains: cfg.Search.ExcludeDomains,
		Category:       cfg.Search.Category,
	}

	engineDeps := pipeline.Deps{
		Oracle: oracle,
		Agents: research.NewAgents(deps, cfg.Research, cfg.Scoring, filters),
		Logger: logger,
	}
	if cfg.Store.Enabled {
		if a.history, err = store.Open(cfg.Store.Path); err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.closers = append(a.closers, a.history)
		engineDeps.History = a.history
	}

	a.engine = pipeline.NewEngine(cfg.Research, engineDeps)
	return a, nil
}

// openSource builds the configured search backend
func openSource(cfg *model.Config, limiter *worker.Limiter, logger *zap.Logger) (search.Source, error) {
	switch strings.ToLower(cfg.Search.Provider) {
	case "exa":
		client, err := search.NewExaClient(search.ExaConfig{
			APIKey:     cfg.Search.APIKey,
			BaseURL:    cfg.Search.BaseURL,
			Timeout:    cfg.Search.Timeout,
			MaxRetries: cfg.Search.MaxRetries,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
		}, limiter, logger.Named("exa"))
		if err != nil {
			return nil, fmt.Errorf("create search client: %w", err)
		}
		return client, nil
	case "replay":
		static, err := search.LoadStatic(cfg.Search.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("load replay file: %w", err)
		}
		return static, nil
	default:
		return nil, fmt.Errorf("unknown search provider: %q (supported: exa, replay)", cfg.Search.Provider)
	}
}
