// Package research gathers evidence for claims from the evidence source.
package research

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/search"
	"go.uber.org/zap"
)

// Agent names
const (
	AgentPro     = "pro"
	AgentContra  = "contra"
	AgentContext = "context"
)

// Default result counts per query
const (
	DefaultProResults     = 3
	DefaultContraResults  = 3
	DefaultContextResults = 2
	DefaultContentLimit   = 1000
)

// ClaimProcessor turns a claim into evidence of a fixed polarity
type ClaimProcessor interface {
	Name() string
	ProcessClaim(ctx context.Context, claim model.Claim) ([]model.Evidence, error)
}

// TextResolver supplies page text for hits the evidence source returned without any
type TextResolver interface {
	Resolve(ctx context.Context, rawURL, query string) (string, error)
}

// Deps are the collaborators shared by all agents
type Deps struct {
	Source   search.Source
	Scorer   *score.ReliabilityScorer
	Resolver TextResolver // optional
	Recorder *Recorder    // optional
	Logger   *zap.Logger
}

// AgentConfig tunes one agent
type AgentConfig struct {
	NumResults   int
	ContentLimit int // runes of content kept per evidence item
	Filters      search.Filters
	ApplyRecency bool // add the recency modifier for results published within a year
}

// Agent issues its queries for a claim and converts hits into evidence
type Agent struct {
	name        string
	supports    bool
	contextual  bool
	queries     func(model.Claim) []string
	explanation func(reliability float64) string

	deps Deps
	cfg  AgentConfig
	now  func() time.Time
}

func foundViaSearch(reliability float64) string {
	return fmt.Sprintf("Source score: %.0f. Found via search.", reliability)
}

// NewProAgent searches every pro query and tags hits as supporting
func NewProAgent(deps Deps, cfg AgentConfig) *Agent {
	return newAgent(AgentPro, true, false, func(c model.Claim) []string {
		return c.SearchQueriesPro
	}, foundViaSearch, deps, withDefaults(cfg, DefaultProResults))
}

// NewContraAgent searches every contra query and tags hits as refuting
func NewContraAgent(deps Deps, cfg AgentConfig) *Agent {
	return newAgent(AgentContra, false, false, func(c model.Claim) []string {
		return c.SearchQueriesContra
	}, foundViaSearch, deps, withDefaults(cfg, DefaultContraResults))
}

// NewContextAgent searches for background on the claim. Hits are tagged as
// supporting but marked contextual.
func NewContextAgent(deps Deps, cfg AgentConfig) *Agent {
	return newAgent(AgentContext, true, true, func(c model.Claim) []string {
		return []string{"background info " + c.Text}
	}, func(float64) string {
		return "Contextual information."
	}, deps, withDefaults(cfg, DefaultContextResults))
}

// NewAgents returns the pro, contra and context agents in that order
func NewAgents(deps Deps, rc model.ResearchConfig, sc model.ScoringConfig, filters search.Filters) []ClaimProcessor {
	cfg := func(n int) AgentConfig {
		return AgentConfig{NumResults: n, ContentLimit: rc.ContentLimit, Filters: filters, ApplyRecency: sc.ApplyRecency}
	}
	return []ClaimProcessor{
		NewProAgent(deps, cfg(rc.ProResults)),
		NewContraAgent(deps, cfg(rc.ContraResults)),
		NewContextAgent(deps, cfg(rc.ContextResults)),
	}
}

func withDefaults(cfg AgentConfig, results int) AgentConfig {
	if cfg.NumResults <= 0 {
		cfg.NumResults = results
	}
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = DefaultContentLimit
	}
	return cfg
}

func newAgent(name string, supports, contextual bool, queries func(model.Claim) []string,
	explanation func(float64) string, deps Deps, cfg AgentConfig) *Agent {
	if deps.Scorer == nil {
		deps.Scorer = score.NewDefaultReliabilityScorer()
	}
	deps.Logger = logging.OrNop(deps.Logger).Named(name)
	return &Agent{
		name:        name,
		supports:    supports,
		contextual:  contextual,
		queries:     queries,
		explanation: explanation,
		deps:        deps,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// ProcessClaim runs every query for the claim. Failed searches contribute no
// evidence; only cancellation is reported as an error.
func (a *Agent) ProcessClaim(ctx context.Context, claim model.Claim) ([]model.Evidence, error) {
	var (
		evidence []model.Evidence
		captures []Capture
	)

	for _, q := range a.queries(claim) {
		if err := ctx.Err(); err != nil {
			return evidence, err
		}
		if q == "" {
			continue
		}

		results, err := a.deps.Source.Search(ctx, search.Query{
			Text:       q,
			NumResults: a.cfg.NumResults,
			Filters:    a.cfg.Filters,
		})
		if err != nil {
			a.deps.Logger.Warn("search failed, continuing without results",
				zap.String("claim_id", claim.ID),
				zap.String("query", q),
				zap.Error(err))
			continue
		}

		for _, r := range results {
			ev, capture := a.toEvidence(ctx, claim, r)
			evidence = append(evidence, ev)
			captures = append(captures, capture)
		}
	}

	metrics.EvidenceCollected.WithLabelValues(a.name).Add(float64(len(evidence)))
	if a.deps.Recorder != nil && len(captures) > 0 {
		a.deps.Recorder.Record(ctx, claim, captures)
	}

	return evidence, nil
}

func (a *Agent) toEvidence(ctx context.Context, claim model.Claim, r search.Result) (model.Evidence, Capture) {
	text := r.Text
	pageText := r.Text
	if text == "" && a.deps.Resolver != nil {
		resolved, err := a.deps.Resolver.Resolve(ctx, r.URL, claim.Text)
		if err != nil {
			a.deps.Logger.Debug("no text for result", zap.String("url", r.URL), zap.Error(err))
		}
		text = resolved
		pageText = "" // already cached by the resolver
	}

	reliability := a.reliability(r)
	ev := model.Evidence{
		URL:                    r.URL,
		Title:                  r.Title,
		Content:                truncate(text, a.cfg.ContentLimit),
		SourceReliabilityScore: reliability,
		SupportsClaim:          a.supports,
		ConfidenceScore:        reliability,
		Explanation:            a.explanation(reliability),
		Contextual:             a.contextual,
		Agent:                  a.name,
		PublishedDate:          r.PublishedDate,
	}
	return ev, Capture{Evidence: ev, PageText: pageText}
}

func (a *Agent) reliability(r search.Result) float64 {
	if a.cfg.ApplyRecency && r.PublishedDate != nil && a.now().Sub(*r.PublishedDate) <= 365*24*time.Hour {
		return a.deps.Scorer.ScoreWithModifiers(r.URL, score.Modifiers{IsRecent: true})
	}
	return a.deps.Scorer.ScoreURL(r.URL)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
