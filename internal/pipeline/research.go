package pipeline

import (
	"context"

	"github.com/ppiankov/veritas/internal/critic"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/research"
	"github.com/ppiankov/veritas/internal/score"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Researcher runs the research step: collect, evaluate, resolve and aggregate per claim
type Researcher struct {
	collector *research.Collector
	evaluator *critic.Evaluator
	resolver  *critic.ConflictResolver
	policy    score.VerdictPolicy
	workers   int
	detailed  bool
	logger    *zap.Logger
}

// NewResearcher creates the research step
func NewResearcher(collector *research.Collector, evaluator *critic.Evaluator, resolver *critic.ConflictResolver,
	cfg model.ResearchConfig, logger *zap.Logger) *Researcher {
	workers := cfg.ClaimWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Researcher{
		collector: collector,
		evaluator: evaluator,
		resolver:  resolver,
		policy:    score.DefaultVerdictPolicy,
		workers:   workers,
		detailed:  cfg.DetailedConflicts,
		logger:    logging.OrNop(logger).Named("research"),
	}
}

// Research builds one finding per claim, in claim order. If ctx ends first it
// returns the findings completed so far, still in claim order, with ctx's error.
func (r *Researcher) Research(ctx context.Context, claims []model.Claim) ([]model.Finding, error) {
	findings := make([]*model.Finding, len(claims))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, claim := range claims {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			f := r.ResearchClaim(ctx, claim)
			if ctx.Err() != nil {
				return nil
			}
			findings[i] = &f
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Finding, 0, len(claims))
	for _, f := range findings {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, ctx.Err()
}

// ResearchClaim collects and judges the evidence for one claim
func (r *Researcher) ResearchClaim(ctx context.Context, claim model.Claim) model.Finding {
	collected := r.collector.Collect(ctx, claim)
	evaluated := r.evaluator.EvaluateAll(ctx, claim, collected)

	var finding model.Finding
	if r.detailed {
		analysis := r.resolver.DetailedAnalysis(ctx, claim, evaluated)
		finding = r.policy.Finding(claim, evaluated, analysis.Resolution)
		finding.Conflict = &analysis
	} else {
		finding = r.policy.Finding(claim, evaluated, r.resolver.Resolve(ctx, claim, evaluated))
	}

	r.logger.Debug("claim researched",
		zap.String("claim_id", claim.ID),
		zap.Int("evidence", len(evaluated)),
		zap.String("verdict", string(finding.Verdict)),
		zap.Float64("confidence", finding.ConfidenceScore))

	return finding
}
