package score

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/veritas/internal/model"
)

func TestVerdictPolicy_Verdict(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected model.Verdict
	}{
		{1.0, model.VerdictValid},
		{0.7, model.VerdictValid},
		{0.69, model.VerdictPartiallyValid},
		{0.5, model.VerdictPartiallyValid},
		{0.4, model.VerdictPartiallyValid},
		{0.39, model.VerdictInconclusive},
		{0.25, model.VerdictInconclusive},
		{0.2, model.VerdictInconclusive},
		{0.19, model.VerdictRefuted},
		{0.0, model.VerdictRefuted},
	}

	for _, tt := range tests {
		if got := DefaultVerdictPolicy.Verdict(tt.ratio); got != tt.expected {
			t.Errorf("Verdict(%v) = %s, expected %s", tt.ratio, got, tt.expected)
		}
	}
}

func TestVerdictPolicy_CustomTable(t *testing.T) {
	strict := VerdictPolicy{
		{MinRatio: 0.9, Verdict: model.VerdictValid},
		{MinRatio: 0, Verdict: model.VerdictInconclusive},
	}

	if got := strict.Verdict(0.8); got != model.VerdictInconclusive {
		t.Errorf("expected INCONCLUSIVE under strict policy, got %s", got)
	}
}

func TestVerdictPolicy_Aggregate(t *testing.T) {
	evidence := func(supports ...bool) []model.Evidence {
		out := make([]model.Evidence, len(supports))
		for i, s := range supports {
			out[i] = model.Evidence{SupportsClaim: s, ConfidenceScore: float64(60 + 10*i)}
		}
		return out
	}

	tests := []struct {
		name     string
		evidence []model.Evidence
		expected Aggregate
	}{
		{
			name:     "empty",
			evidence: nil,
			expected: Aggregate{Verdict: model.VerdictInconclusive},
		},
		{
			name:     "unanimous support",
			evidence: evidence(true, true),
			expected: Aggregate{Verdict: model.VerdictValid, Confidence: 65, SupportRatio: 1, Supporting: 2},
		},
		{
			name:     "split",
			evidence: evidence(true, false, true, false),
			expected: Aggregate{Verdict: model.VerdictPartiallyValid, Confidence: 75, SupportRatio: 0.5, Supporting: 2, Refuting: 2},
		},
		{
			name:     "one in four",
			evidence: evidence(false, true, false, false),
			expected: Aggregate{Verdict: model.VerdictInconclusive, Confidence: 75, SupportRatio: 0.25, Supporting: 1, Refuting: 3},
		},
		{
			name:     "all refuting",
			evidence: evidence(false, false, false),
			expected: Aggregate{Verdict: model.VerdictRefuted, Confidence: 70, Refuting: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultVerdictPolicy.Aggregate(tt.evidence)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerdictPolicy_AggregateClampsConfidence(t *testing.T) {
	got := DefaultVerdictPolicy.Aggregate([]model.Evidence{
		{SupportsClaim: true, ConfidenceScore: 150},
		{SupportsClaim: true, ConfidenceScore: -20},
	})
	if got.Confidence != 50 {
		t.Errorf("expected clamped mean 50, got %v", got.Confidence)
	}
}

func TestVerdictPolicy_Finding(t *testing.T) {
	claim := model.Claim{ID: "claim_1", Text: "Mars has two moons"}
	evidence := []model.Evidence{
		{URL: "https://nasa.gov", SupportsClaim: true, ConfidenceScore: 90},
		{URL: "https://esa.int", SupportsClaim: true, ConfidenceScore: 80},
	}

	f := DefaultVerdictPolicy.Finding(claim, evidence, "All sources agree.")

	if f.Verdict != model.VerdictValid {
		t.Errorf("expected VALID, got %s", f.Verdict)
	}
	if f.ConfidenceScore != 85 {
		t.Errorf("expected confidence 85, got %v", f.ConfidenceScore)
	}
	if len(f.Evidence) != 2 || f.Summary != "All sources agree." || f.Claim.ID != "claim_1" {
		t.Errorf("finding fields not carried over: %+v", f)
	}
}

func TestSummarize(t *testing.T) {
	findings := []model.Finding{
		{Claim: model.Claim{ID: "claim_1"}, ConfidenceScore: 90},
		{Claim: model.Claim{ID: "claim_2"}, ConfidenceScore: 60},
		{Claim: model.Claim{ID: "claim_3"}, ConfidenceScore: 30},
	}

	got := Summarize(findings)
	want := ConfidenceSummary{
		Overall:      60,
		WeakClaims:   []string{"claim_3"},
		StrongClaims: []string{"claim_1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
	if !got.NeedsMoreResearch() {
		t.Error("weak claim should require more research")
	}

	empty := Summarize(nil)
	if empty.Overall != 0 || empty.NeedsMoreResearch() {
		t.Errorf("unexpected summary for no findings: %+v", empty)
	}
}
