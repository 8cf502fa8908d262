// Package analyst frames a hypothesis before research and reports on it afterwards.
package analyst

import (
	"context"
	"strings"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"go.uber.org/zap"
)

// Clarification is the outcome of the ambiguity check
type Clarification struct {
	IsAmbiguous bool
	Question    string
	Refined     string
}

// Clarifier checks whether a hypothesis is precise enough to research
type Clarifier struct {
	oracle llm.Oracle
	logger *zap.Logger
}

// NewClarifier creates a clarifier
func NewClarifier(oracle llm.Oracle, logger *zap.Logger) *Clarifier {
	return &Clarifier{oracle: oracle, logger: logging.OrNop(logger).Named("clarifier")}
}

type clarifyAnswer struct {
	IsAmbiguous           bool    `json:"is_ambiguous"`
	ClarificationQuestion *string `json:"clarification_question"`
	RefinedHypothesis     *string `json:"refined_hypothesis"`
}

// Clarify never blocks the run: when the oracle fails the hypothesis is treated as clear
func (c *Clarifier) Clarify(ctx context.Context, h model.Hypothesis) Clarification {
	answer := llm.Ask[clarifyAnswer](ctx, c.oracle, llm.ClarifyPrompt, map[string]any{
		"hypothesis": h.Text,
		"context":    h.Context,
	}).Or(func(err error) clarifyAnswer {
		metrics.Fallbacks.WithLabelValues("clarifier").Inc()
		c.logger.Warn("clarification failed, assuming hypothesis is clear", zap.Error(err))
		return clarifyAnswer{}
	})

	return Clarification{
		IsAmbiguous: answer.IsAmbiguous,
		Question:    deref(answer.ClarificationQuestion),
		Refined:     deref(answer.RefinedHypothesis),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
