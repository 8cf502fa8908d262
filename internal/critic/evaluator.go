// Package critic judges collected evidence and resolves conflicts between it.
package critic

import (
	"context"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultExcerpt is the number of content characters shown to the oracle
	DefaultExcerpt = 2000

	// DefaultWorkers bounds concurrent evaluations per claim
	DefaultWorkers = 4
)

// Evaluator asks the oracle whether each evidence item supports its claim
type Evaluator struct {
	oracle  llm.Oracle
	excerpt int
	workers int
	logger  *zap.Logger
}

// NewEvaluator creates an evaluator; non-positive limits fall back to defaults
func NewEvaluator(oracle llm.Oracle, excerpt, workers int, logger *zap.Logger) *Evaluator {
	if excerpt <= 0 {
		excerpt = DefaultExcerpt
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Evaluator{
		oracle:  oracle,
		excerpt: excerpt,
		workers: workers,
		logger:  logging.OrNop(logger).Named("evaluator"),
	}
}

type evaluation struct {
	SupportsClaim   *bool    `json:"supports_claim" validate:"required"`
	ConfidenceScore *float64 `json:"confidence_score" validate:"required,gte=0,lte=100"`
	Explanation     string   `json:"explanation" validate:"required"`
}

// Evaluate returns ev with the oracle's polarity, confidence and explanation.
// Every other field is kept as collected. If the oracle fails, ev is returned unchanged.
func (e *Evaluator) Evaluate(ctx context.Context, claim model.Claim, ev model.Evidence) model.Evidence {
	res := llm.Ask[evaluation](ctx, e.oracle, llm.EvaluatePrompt, map[string]any{
		"claim":       claim.Text,
		"url":         ev.URL,
		"title":       ev.Title,
		"reliability": ev.SourceReliabilityScore,
		"excerpt":     llm.Truncate(e.excerpt, ev.Content),
		"contextual":  ev.Contextual,
	})

	out, ok := res.Value()
	if !ok {
		metrics.Fallbacks.WithLabelValues("evaluator").Inc()
		e.logger.Warn("evaluation failed, keeping collected evidence",
			zap.String("claim_id", claim.ID),
			zap.String("url", ev.URL),
			zap.Error(res.Err()))
		return ev
	}

	ev.SupportsClaim = *out.SupportsClaim
	ev.ConfidenceScore = score.Clamp(*out.ConfidenceScore)
	ev.Explanation = out.Explanation
	return ev
}

// EvaluateAll evaluates every item concurrently and returns them in input order
func (e *Evaluator) EvaluateAll(ctx context.Context, claim model.Claim, evidence []model.Evidence) []model.Evidence {
	out := make([]model.Evidence, len(evidence))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, ev := range evidence {
		g.Go(func() error {
			out[i] = e.Evaluate(ctx, claim, ev)
			return nil
		})
	}
	_ = g.Wait()

	return out
}
