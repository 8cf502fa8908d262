package research

import (
	"context"
	"fmt"

	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collector runs every agent for a claim concurrently and merges their evidence
type Collector struct {
	agents []ClaimProcessor
	logger *zap.Logger
}

// NewCollector creates a collector; evidence is merged in agent order
func NewCollector(logger *zap.Logger, agents ...ClaimProcessor) *Collector {
	return &Collector{agents: agents, logger: logging.OrNop(logger).Named("collector")}
}

// Collect waits for all agents. An agent that fails or panics contributes no evidence.
func (c *Collector) Collect(ctx context.Context, claim model.Claim) []model.Evidence {
	results := make([][]model.Evidence, len(c.agents))

	var g errgroup.Group
	for i, agent := range c.agents {
		g.Go(func() error {
			results[i] = c.run(ctx, agent, claim)
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.Evidence
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

func (c *Collector) run(ctx context.Context, agent ClaimProcessor, claim model.Claim) (evidence []model.Evidence) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("agent panicked",
				zap.String("agent", agent.Name()),
				zap.String("claim_id", claim.ID),
				zap.Error(fmt.Errorf("%v", r)))
			evidence = nil
		}
	}()

	evidence, err := agent.ProcessClaim(ctx, claim)
	if err != nil {
		c.logger.Warn("agent failed",
			zap.String("agent", agent.Name()),
			zap.String("claim_id", claim.ID),
			zap.Error(err))
		return nil
	}
	return evidence
}
