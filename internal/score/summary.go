package score

import "github.com/ppiankov/veritas/internal/model"

const (
	weakClaimBelow   = 50.0
	strongClaimAbove = 70.0
)

// ConfidenceSummary describes how settled a set of findings is
type ConfidenceSummary struct {
	Overall      float64  `json:"overall"`       // Mean finding confidence
	WeakClaims   []string `json:"weak_claims"`   // Claim IDs below 50
	StrongClaims []string `json:"strong_claims"` // Claim IDs at 70 or above
}

// NeedsMoreResearch reports whether any claim is still weak
func (s ConfidenceSummary) NeedsMoreResearch() bool {
	return len(s.WeakClaims) > 0
}

// Summarize computes the confidence summary of a finding set
func Summarize(findings []model.Finding) ConfidenceSummary {
	summary := ConfidenceSummary{
		WeakClaims:   []string{},
		StrongClaims: []string{},
	}
	if len(findings) == 0 {
		return summary
	}

	var total float64
	for _, f := range findings {
		total += f.ConfidenceScore
		switch {
		case f.ConfidenceScore < weakClaimBelow:
			summary.WeakClaims = append(summary.WeakClaims, f.Claim.ID)
		case f.ConfidenceScore >= strongClaimAbove:
			summary.StrongClaims = append(summary.StrongClaims, f.Claim.ID)
		}
	}
	summary.Overall = total / float64(len(findings))

	return summary
}
