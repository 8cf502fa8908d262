package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete runtime configuration
type Config struct {
	LLM          LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig    `yaml:"search" mapstructure:"search"`
	Research     ResearchConfig  `yaml:"research" mapstructure:"research"`
	Scoring      ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Index        IndexConfig     `yaml:"index" mapstructure:"index"`
	Fetch        FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	HTTP         HTTPConfig      `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Store        StoreConfig     `yaml:"store" mapstructure:"store"`
	Output       OutputConfig    `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig configures the reasoning oracle backend
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`

	// Consecutive failures before calls are short-circuited, and for how long
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// SearchConfig configures the evidence source
type SearchConfig struct {
	Provider       string        `yaml:"provider" mapstructure:"provider"` // exa, replay
	APIKey         string        `yaml:"-" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	ReplayFile     string        `yaml:"replay_file,omitempty" mapstructure:"replay_file"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	IncludeDomains []string      `yaml:"include_domains,omitempty" mapstructure:"include_domains"`
	ExcludeDomains []string      `yaml:"exclude_domains,omitempty" mapstructure:"exclude_domains"`
	Category       string        `yaml:"category,omitempty" mapstructure:"category"`
}

// ResearchConfig configures the research loop
type ResearchConfig struct {
	MaxIterations       int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	ProResults          int           `yaml:"pro_results" mapstructure:"pro_results"`
	ContraResults       int           `yaml:"contra_results" mapstructure:"contra_results"`
	ContextResults      int           `yaml:"context_results" mapstructure:"context_results"`
	ContentLimit        int           `yaml:"content_limit" mapstructure:"content_limit"`           // characters kept per evidence item
	EvaluationExcerpt   int           `yaml:"evaluation_excerpt" mapstructure:"evaluation_excerpt"` // characters sent to the evaluator
	ClaimWorkers        int           `yaml:"claim_workers" mapstructure:"claim_workers"`
	EvaluationWorkers   int           `yaml:"evaluation_workers" mapstructure:"evaluation_workers"`
	DetailedConflicts   bool          `yaml:"detailed_conflicts" mapstructure:"detailed_conflicts"`
	RunTimeout          time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
}

// ScoringConfig configures the source reliability scorer
type ScoringConfig struct {
	DomainFile   string `yaml:"domain_file,omitempty" mapstructure:"domain_file"` // YAML overrides for the domain table
	ApplyRecency bool   `yaml:"apply_recency" mapstructure:"apply_recency"`
}

// CacheConfig configures the URL content cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, sqlite, badger, redis, layered
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// IndexConfig configures the vector index
type IndexConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Backend        string `yaml:"backend" mapstructure:"backend"` // memory, qdrant
	URL            string `yaml:"url,omitempty" mapstructure:"url"`
	Collection     string `yaml:"collection" mapstructure:"collection"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	Dimensions     int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// FetchConfig configures page fetching for search hits without text
type FetchConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// HTTPConfig holds proxy settings shared by all outbound clients
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig limits outbound requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// StoreConfig configures run history persistence
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	TopSources    int  `yaml:"top_sources" mapstructure:"top_sources"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o",
			Timeout:          60,
			MaxTokens:        1500,
			Temperature:      0,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		Search: SearchConfig{
			Provider:   "exa",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Research: ResearchConfig{
			MaxIterations:       3,
			ConfidenceThreshold: 60,
			ProResults:          3,
			ContraResults:       3,
			ContextResults:      2,
			ContentLimit:        1000,
			EvaluationExcerpt:   2000,
			ClaimWorkers:        4,
			EvaluationWorkers:   4,
			RunTimeout:          10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			Dir:       "~/.veritas/cache",
			TTL:       7 * 24 * time.Hour,
			MemoryTTL: time.Hour,
		},
		Index: IndexConfig{
			Enabled:        true,
			Backend:        "memory",
			Collection:     "veritas_evidence",
			EmbeddingModel: "text-embedding-3-small",
			Dimensions:     1536,
		},
		Fetch: FetchConfig{
			Enabled:       true,
			Timeout:       15 * time.Second,
			UserAgent:     "Veritas/0.1 (+https://github.com/ppiankov/veritas)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "~/.veritas/history.db",
		},
		Output: OutputConfig{
			IncludeFooter: true,
			TopSources:    5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration before a run starts.
// Missing credentials are reported here rather than mid-run.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY environment variable not set"))
		}
	case "anthropic", "claude":
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY environment variable not set"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM provider: %q", c.LLM.Provider))
	}

	switch strings.ToLower(c.Search.Provider) {
	case "exa":
		if c.Search.APIKey == "" {
			errs = append(errs, errors.New("EXA_API_KEY environment variable not set"))
		}
	case "replay":
		if c.Search.ReplayFile == "" {
			errs = append(errs, errors.New("search.replay_file is required for the replay provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search provider: %q", c.Search.Provider))
	}

	if c.Research.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("research.max_iterations must be at least 1, got %d", c.Research.MaxIterations))
	}
	if c.Research.ConfidenceThreshold < 0 || c.Research.ConfidenceThreshold > 100 {
		errs = append(errs, fmt.Errorf("research.confidence_threshold must be within [0,100], got %v", c.Research.ConfidenceThreshold))
	}
	if c.Research.ContentLimit <= 0 || c.Research.EvaluationExcerpt <= 0 {
		errs = append(errs, errors.New("research content limits must be positive"))
	}

	return errors.Join(errs...)
}
