package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/veritas/internal/model"
)

func TestPrompts_Render(t *testing.T) {
	evidence := []model.Evidence{
		{URL: "https://nasa.gov/mars", SupportsClaim: true, SourceReliabilityScore: 95, Content: strings.Repeat("a", 400)},
		{URL: "https://blog.example/mars", SupportsClaim: false, SourceReliabilityScore: 50, Content: "three moons"},
	}
	findings := []model.Finding{{
		Claim:           model.Claim{ID: "claim_1", Text: "Mars has two moons"},
		Evidence:        evidence,
		Verdict:         model.VerdictPartiallyValid,
		ConfidenceScore: 72.4,
		Summary:         "Mostly supported.",
	}}

	tests := []struct {
		prompt Prompt
		vars   map[string]any
		want   []string
	}{
		{
			prompt: ClarifyPrompt,
			vars:   map[string]any{"hypothesis": "Mars has two moons", "context": ""},
			want:   []string{"HYPOTHESIS: Mars has two moons", `"is_ambiguous"`},
		},
		{
			prompt: DecomposePrompt,
			vars:   map[string]any{"hypothesis": "Mars has two moons", "context": "astronomy"},
			want:   []string{"CONTEXT: astronomy", "search_queries_contra"},
		},
		{
			prompt: EvaluatePrompt,
			vars: map[string]any{
				"claim": "Mars has two moons", "url": "https://nasa.gov/mars", "title": "Moons",
				"reliability": 95.0, "excerpt": "Phobos and Deimos", "contextual": true,
			},
			want: []string{"RELIABILITY SCORE: 95/100", "background context", "Phobos and Deimos"},
		},
		{
			prompt: ResolvePrompt,
			vars:   map[string]any{"claim": "Mars has two moons", "evidence": evidence},
			want:   []string{"1. [SUPPORTS] https://nasa.gov/mars", "2. [REFUTES] https://blog.example/mars", "Reliability: 50/100"},
		},
		{
			prompt: ConflictAnalysisPrompt,
			vars:   map[string]any{"claim": "Mars has two moons", "evidence": evidence},
			want:   []string{"winning_position"},
		},
		{
			prompt: SynthesizePrompt,
			vars:   map[string]any{"hypothesis": "Mars has two moons", "context": "", "findings": findings},
			want:   []string{"Verdict: PARTIALLY_VALID (confidence 72/100, 2 sources)", "Mostly supported."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.prompt.Name, func(t *testing.T) {
			text, err := tt.prompt.Render(tt.vars)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("rendered prompt missing %q:\n%s", w, text)
				}
			}
		})
	}
}

func TestResolvePrompt_TruncatesContent(t *testing.T) {
	text, err := ResolvePrompt.Render(map[string]any{
		"claim":    "c",
		"evidence": []model.Evidence{{URL: "u", Content: strings.Repeat("x", 500)}},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(text, strings.Repeat("x", 301)) {
		t.Error("evidence content should be cut at 300 characters")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate(3, "héllo"); got != "hél" {
		t.Errorf("Truncate should count runes, got %q", got)
	}
	if got := Truncate(10, "short"); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := Truncate(0, "x"); got != "" {
		t.Errorf("unexpected %q", got)
	}
}
