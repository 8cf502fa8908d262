package critic

import (
	"context"
	"fmt"
	"math"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
	"go.uber.org/zap"
)

const (
	// ReliabilityMargin is how far one side's mean reliability must lead to win without the oracle
	ReliabilityMargin = 10.0

	fallbackConfidence = 30.0
	oneSidedCap        = 80.0
	oneSidedPerSource  = 20.0
)

const noEvidence = "No evidence to analyze."

// ConflictResolver summarizes how a claim's evidence agrees or disagrees
type ConflictResolver struct {
	oracle llm.Oracle
	logger *zap.Logger
}

// NewConflictResolver creates a resolver over the oracle
func NewConflictResolver(oracle llm.Oracle, logger *zap.Logger) *ConflictResolver {
	return &ConflictResolver{oracle: oracle, logger: logging.OrNop(logger).Named("resolver")}
}

type sides struct {
	supporting []model.Evidence
	refuting   []model.Evidence
}

func split(evidence []model.Evidence) sides {
	var s sides
	for _, ev := range evidence {
		if ev.SupportsClaim {
			s.supporting = append(s.supporting, ev)
		} else {
			s.refuting = append(s.refuting, ev)
		}
	}
	return s
}

func (s sides) mixed() bool {
	return len(s.supporting) > 0 && len(s.refuting) > 0
}

// direction is the polarity of one-sided evidence
func (s sides) direction() string {
	if len(s.supporting) > 0 {
		return "support"
	}
	return "refute"
}

type resolution struct {
	Resolution string `json:"resolution" validate:"required"`
}

// Resolve returns a textual resolution of the evidence for claim.
// One-sided evidence is summarized locally. Mixed evidence goes to the oracle,
// with a reliability rule as fallback.
func (r *ConflictResolver) Resolve(ctx context.Context, claim model.Claim, evidence []model.Evidence) string {
	if len(evidence) == 0 {
		return noEvidence
	}

	s := split(evidence)
	if !s.mixed() {
		group, verb := s.supporting, "supporting"
		if len(group) == 0 {
			group, verb = s.refuting, "refuting"
		}
		return fmt.Sprintf("No significant conflicts detected. %d sources %s the claim with average reliability score of %.1f.",
			len(group), verb, meanReliability(group))
	}

	return llm.Ask[resolution](ctx, r.oracle, llm.ResolvePrompt, map[string]any{
		"claim":    claim.Text,
		"evidence": evidence,
	}).Or(func(err error) resolution {
		r.fallback(claim, err)
		return resolution{Resolution: RuleBasedResolution(s.supporting, s.refuting)}
	}).Resolution
}

type conflictAnswer struct {
	HasConflicts           bool     `json:"has_conflicts"`
	ConflictDescription    *string  `json:"conflict_description"`
	Resolution             string   `json:"resolution" validate:"required"`
	WinningPosition        *string  `json:"winning_position"`
	ConfidenceInResolution *float64 `json:"confidence_in_resolution" validate:"required,gte=0,lte=100"`
}

// DetailedAnalysis returns a structured conflict analysis for claim
func (r *ConflictResolver) DetailedAnalysis(ctx context.Context, claim model.Claim, evidence []model.Evidence) model.ConflictAnalysis {
	if len(evidence) == 0 {
		return model.ConflictAnalysis{Resolution: noEvidence}
	}

	s := split(evidence)
	if !s.mixed() {
		direction := s.direction()
		return model.ConflictAnalysis{
			Resolution:             fmt.Sprintf("All evidence appears to %s the claim.", direction),
			WinningPosition:        direction,
			ConfidenceInResolution: math.Min(oneSidedCap, float64(len(evidence))*oneSidedPerSource),
		}
	}

	res := llm.Ask[conflictAnswer](ctx, r.oracle, llm.ConflictAnalysisPrompt, map[string]any{
		"claim":    claim.Text,
		"evidence": evidence,
	})
	answer, ok := res.Value()
	if !ok {
		r.fallback(claim, res.Err())
		return model.ConflictAnalysis{
			HasConflicts:           true,
			ConflictDescription:    fmt.Sprintf("Error analyzing conflicts: %v", res.Err()),
			Resolution:             RuleBasedResolution(s.supporting, s.refuting),
			ConfidenceInResolution: fallbackConfidence,
		}
	}

	analysis := model.ConflictAnalysis{
		HasConflicts:           answer.HasConflicts,
		Resolution:             answer.Resolution,
		ConfidenceInResolution: score.Clamp(*answer.ConfidenceInResolution),
	}
	if answer.ConflictDescription != nil {
		analysis.ConflictDescription = *answer.ConflictDescription
	}
	if answer.WinningPosition != nil {
		switch *answer.WinningPosition {
		case "support", "refute":
			analysis.WinningPosition = *answer.WinningPosition
		}
	}
	return analysis
}

func (r *ConflictResolver) fallback(claim model.Claim, err error) {
	metrics.Fallbacks.WithLabelValues("resolver").Inc()
	r.logger.Warn("conflict resolution failed, using reliability rule",
		zap.String("claim_id", claim.ID),
		zap.Error(err))
}

// RuleBasedResolution compares the mean source reliability of each side.
// A side wins only when it leads by more than ReliabilityMargin.
func RuleBasedResolution(supporting, refuting []model.Evidence) string {
	supportAvg := meanReliability(supporting)
	refuteAvg := meanReliability(refuting)

	switch {
	case supportAvg > refuteAvg+ReliabilityMargin:
		return fmt.Sprintf("Conflict detected between %d supporting and %d refuting sources. "+
			"Supporting sources have higher average reliability (%.0f vs %.0f), suggesting the claim is likely valid.",
			len(supporting), len(refuting), supportAvg, refuteAvg)
	case refuteAvg > supportAvg+ReliabilityMargin:
		return fmt.Sprintf("Conflict detected between %d supporting and %d refuting sources. "+
			"Refuting sources have higher average reliability (%.0f vs %.0f), suggesting the claim may be invalid.",
			len(supporting), len(refuting), refuteAvg, supportAvg)
	default:
		return fmt.Sprintf("Significant conflict detected with %d supporting and %d refuting sources of similar reliability. "+
			"Additional research may be needed to resolve this uncertainty.",
			len(supporting), len(refuting))
	}
}

func meanReliability(evidence []model.Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var total float64
	for _, ev := range evidence {
		total += ev.SourceReliabilityScore
	}
	return total / float64(len(evidence))
}
