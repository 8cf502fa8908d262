package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
	"go.uber.org/zap"
)

// Synthesizer turns findings into the report for one iteration
type Synthesizer struct {
	oracle llm.Oracle
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(oracle llm.Oracle, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{oracle: oracle, logger: logging.OrNop(logger).Named("synthesizer")}
}

type synthesisAnswer struct {
	Verdict            string   `json:"verdict" validate:"required"`
	ConfidenceScore    *float64 `json:"confidence_score" validate:"required,gte=0,lte=100"`
	ExecutiveSummary   string   `json:"executive_summary" validate:"required"`
	MissingInformation []string `json:"missing_information"`
}

// Synthesize always returns a report. Findings and sources come from the
// research step; only the verdict, confidence, summary and gaps come from the oracle.
func (s *Synthesizer) Synthesize(ctx context.Context, h model.Hypothesis, findings []model.Finding) model.Report {
	res := llm.Ask[synthesisAnswer](ctx, s.oracle, llm.SynthesizePrompt, map[string]any{
		"hypothesis": h.Text,
		"context":    h.Context,
		"findings":   findings,
	})

	answer, ok := res.Value()
	err := res.Err()
	var verdict model.Verdict
	if ok {
		verdict, err = parseVerdict(answer.Verdict)
	}
	if err != nil {
		metrics.Fallbacks.WithLabelValues("synthesizer").Inc()
		s.logger.Warn("synthesis failed, producing error report", zap.Error(err))
		return FallbackReport(h, findings, err)
	}

	missing := cleanQueries(answer.MissingInformation)
	return model.Report{
		Hypothesis:         h.Text,
		Verdict:            verdict,
		ConfidenceScore:    score.Clamp(*answer.ConfidenceScore),
		ExecutiveSummary:   strings.TrimSpace(answer.ExecutiveSummary),
		Findings:           cloneFindings(findings),
		MissingInformation: missing,
		Sources:            model.CollectSources(findings),
	}
}

// FallbackReport is the ERROR report produced when synthesis fails
func FallbackReport(h model.Hypothesis, findings []model.Finding, err error) model.Report {
	return model.Report{
		Hypothesis:         h.Text,
		Verdict:            model.VerdictError,
		ConfidenceScore:    0,
		ExecutiveSummary:   fmt.Sprintf("Error generating report: %v", err),
		Findings:           cloneFindings(findings),
		MissingInformation: []string{"Report generation failed"},
		Sources:            model.CollectSources(findings),
	}
}

func parseVerdict(s string) (model.Verdict, error) {
	v := model.Verdict(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	if !v.IsValid() || v == model.VerdictError {
		return "", fmt.Errorf("unknown verdict %q", s)
	}
	return v, nil
}

func cloneFindings(findings []model.Finding) []model.Finding {
	out := make([]model.Finding, len(findings))
	for i, f := range findings {
		out[i] = f.Clone()
	}
	return out
}
