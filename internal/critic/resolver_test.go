package critic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/llm/llmtest"
	"github.com/ppiankov/veritas/internal/model"
)

func evidence(supports bool, scores ...float64) []model.Evidence {
	var out []model.Evidence
	for _, s := range scores {
		out = append(out, model.Evidence{URL: "https://example.com", SupportsClaim: supports, SourceReliabilityScore: s})
	}
	return out
}

func mixed(support, refute float64) []model.Evidence {
	return append(evidence(true, support), evidence(false, refute)...)
}

func TestConflictResolver_Resolve(t *testing.T) {
	down := llmtest.New().On(llm.ResolvePrompt.Name, llmtest.Fail(errors.New("down")))

	tests := []struct {
		name     string
		evidence []model.Evidence
		want     string
	}{
		{
			name: "empty",
			want: "No evidence to analyze.",
		},
		{
			name:     "all supporting",
			evidence: evidence(true, 90, 80),
			want:     "No significant conflicts detected. 2 sources supporting the claim with average reliability score of 85.0.",
		},
		{
			name:     "all refuting",
			evidence: evidence(false, 60),
			want:     "No significant conflicts detected. 1 sources refuting the claim with average reliability score of 60.0.",
		},
		{
			name:     "supporting side stronger",
			evidence: mixed(90, 70),
			want: "Conflict detected between 1 supporting and 1 refuting sources. " +
				"Supporting sources have higher average reliability (90 vs 70), suggesting the claim is likely valid.",
		},
		{
			name:     "refuting side stronger",
			evidence: mixed(50, 95),
			want: "Conflict detected between 1 supporting and 1 refuting sources. " +
				"Refuting sources have higher average reliability (95 vs 50), suggesting the claim may be invalid.",
		},
		{
			name:     "margin not exceeded",
			evidence: mixed(80, 70),
			want: "Significant conflict detected with 1 supporting and 1 refuting sources of similar reliability. " +
				"Additional research may be needed to resolve this uncertainty.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConflictResolver(down, nil).Resolve(context.Background(), claim, tt.evidence)
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConflictResolver_ResolveUsesOracleForConflicts(t *testing.T) {
	oracle := llmtest.New().On(llm.ResolvePrompt.Name, llmtest.JSON(map[string]string{
		"resolution": "Both moons are confirmed; the dissent concerns captured asteroids.",
	}))
	r := NewConflictResolver(oracle, nil)

	got := r.Resolve(context.Background(), claim, mixed(90, 40))
	if got != "Both moons are confirmed; the dissent concerns captured asteroids." {
		t.Errorf("Resolve() = %q", got)
	}

	// One-sided evidence never reaches the oracle
	r.Resolve(context.Background(), claim, evidence(true, 90))
	if n := len(oracle.Calls("")); n != 1 {
		t.Errorf("oracle called %d times, want 1", n)
	}
	if !strings.Contains(oracle.Calls("")[0].Text, "[REFUTES]") {
		t.Error("resolve prompt does not list refuting evidence")
	}
}

func TestConflictResolver_DetailedAnalysis(t *testing.T) {
	down := llmtest.New().On(llm.ConflictAnalysisPrompt.Name, llmtest.Fail(errors.New("down")))
	r := NewConflictResolver(down, nil)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		want := model.ConflictAnalysis{Resolution: "No evidence to analyze."}
		if diff := cmp.Diff(want, r.DetailedAnalysis(ctx, claim, nil)); diff != "" {
			t.Errorf("DetailedAnalysis() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one sided", func(t *testing.T) {
		want := model.ConflictAnalysis{
			Resolution:             "All evidence appears to support the claim.",
			WinningPosition:        "support",
			ConfidenceInResolution: 60,
		}
		if diff := cmp.Diff(want, r.DetailedAnalysis(ctx, claim, evidence(true, 90, 90, 90))); diff != "" {
			t.Errorf("DetailedAnalysis() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one sided confidence capped", func(t *testing.T) {
		got := r.DetailedAnalysis(ctx, claim, evidence(false, 1, 2, 3, 4, 5, 6))
		if got.ConfidenceInResolution != 80 || got.WinningPosition != "refute" || got.HasConflicts {
			t.Errorf("DetailedAnalysis() = %+v", got)
		}
	})

	t.Run("oracle failure", func(t *testing.T) {
		got := r.DetailedAnalysis(ctx, claim, mixed(90, 70))
		if !got.HasConflicts || got.ConfidenceInResolution != 30 {
			t.Errorf("DetailedAnalysis() = %+v", got)
		}
		if !strings.Contains(got.Resolution, "Supporting sources have higher average reliability") {
			t.Errorf("resolution = %q, want the reliability rule", got.Resolution)
		}
		if !strings.HasPrefix(got.ConflictDescription, "Error analyzing conflicts:") {
			t.Errorf("description = %q", got.ConflictDescription)
		}
	})
}

func TestConflictResolver_DetailedAnalysisFromOracle(t *testing.T) {
	oracle := llmtest.New().On(llm.ConflictAnalysisPrompt.Name, llmtest.Raw(
		`{"has_conflicts": true, "conflict_description": "Sources disagree on definitions.", "resolution": "Support prevails.", "winning_position": "support", "confidence_in_resolution": 72}`))

	got := NewConflictResolver(oracle, nil).DetailedAnalysis(context.Background(), claim, mixed(90, 40))
	want := model.ConflictAnalysis{
		HasConflicts:           true,
		ConflictDescription:    "Sources disagree on definitions.",
		Resolution:             "Support prevails.",
		WinningPosition:        "support",
		ConfidenceInResolution: 72,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DetailedAnalysis() mismatch (-want +got):\n%s", diff)
	}
}

func TestConflictResolver_DetailedAnalysisIgnoresUnknownPosition(t *testing.T) {
	oracle := llmtest.New().On(llm.ConflictAnalysisPrompt.Name, llmtest.Raw(
		`{"has_conflicts": true, "conflict_description": null, "resolution": "Unclear.", "winning_position": "neither", "confidence_in_resolution": 20}`))

	got := NewConflictResolver(oracle, nil).DetailedAnalysis(context.Background(), claim, mixed(60, 60))
	if got.WinningPosition != "" || got.ConflictDescription != "" {
		t.Errorf("DetailedAnalysis() = %+v", got)
	}
}

func TestConflictResolver_DetailedAnalysisMissingConfidence(t *testing.T) {
	oracle := llmtest.New().On(llm.ConflictAnalysisPrompt.Name, llmtest.Raw(
		`{"has_conflicts": true, "resolution": "Support prevails.", "winning_position": "support"}`))

	got := NewConflictResolver(oracle, nil).DetailedAnalysis(context.Background(), claim, mixed(90, 40))
	if !got.HasConflicts || got.ConfidenceInResolution != 30 || got.WinningPosition != "" {
		t.Errorf("DetailedAnalysis() = %+v, want the rule-based fallback", got)
	}
	if !strings.HasPrefix(got.ConflictDescription, "Error analyzing conflicts:") {
		t.Errorf("description = %q", got.ConflictDescription)
	}
}
