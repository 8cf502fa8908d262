package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"go.uber.org/zap"
)

// MaxClaims caps the number of claims kept from one decomposition
const MaxClaims = 5

// Decomposer splits a hypothesis into atomic claims
type Decomposer struct {
	oracle llm.Oracle
	logger *zap.Logger
}

// NewDecomposer creates a decomposer
func NewDecomposer(oracle llm.Oracle, logger *zap.Logger) *Decomposer {
	return &Decomposer{oracle: oracle, logger: logging.OrNop(logger).Named("decomposer")}
}

type claimAnswer struct {
	ID                  string   `json:"id"`
	Text                string   `json:"text"`
	EvidenceNeeded      string   `json:"evidence_needed"`
	RefutationWouldBe   string   `json:"refutation_would_be"`
	SearchQueriesPro    []string `json:"search_queries_pro"`
	SearchQueriesContra []string `json:"search_queries_contra"`
}

type decomposeAnswer struct {
	Claims []claimAnswer `json:"claims"`
}

// Decompose returns the claims for h, or none when the oracle fails.
// Claims without text are dropped and IDs are made unique.
func (d *Decomposer) Decompose(ctx context.Context, h model.Hypothesis) []model.Claim {
	answer := llm.Ask[decomposeAnswer](ctx, d.oracle, llm.DecomposePrompt, map[string]any{
		"hypothesis": h.Text,
		"context":    h.Context,
	}).Or(func(err error) decomposeAnswer {
		metrics.Fallbacks.WithLabelValues("decomposer").Inc()
		d.logger.Warn("decomposition failed", zap.Error(err))
		return decomposeAnswer{}
	})

	return normalizeClaims(answer.Claims)
}

func normalizeClaims(answers []claimAnswer) []model.Claim {
	claims := make([]model.Claim, 0, len(answers))
	seen := make(map[string]bool)

	for _, a := range answers {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			continue
		}
		if len(claims) == MaxClaims {
			break
		}

		id := strings.TrimSpace(a.ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("claim_%d", len(claims)+1)
			for n := len(claims) + 1; seen[id]; n++ {
				id = fmt.Sprintf("claim_%d", n)
			}
		}
		seen[id] = true

		claims = append(claims, model.Claim{
			ID:                  id,
			Text:                text,
			EvidenceNeeded:      strings.TrimSpace(a.EvidenceNeeded),
			RefutationWouldBe:   strings.TrimSpace(a.RefutationWouldBe),
			SearchQueriesPro:    cleanQueries(a.SearchQueriesPro),
			SearchQueriesContra: cleanQueries(a.SearchQueriesContra),
		})
	}

	return claims
}

func cleanQueries(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// FallbackClaim is the single claim researched when decomposition yields nothing.
// Its text is the hypothesis itself.
func FallbackClaim(h model.Hypothesis) model.Claim {
	return model.Claim{
		ID:                  "claim_1",
		Text:                h.Text,
		EvidenceNeeded:      "Evidence directly supporting the hypothesis",
		RefutationWouldBe:   "Evidence directly contradicting the hypothesis",
		SearchQueriesPro:    []string{h.Text},
		SearchQueriesContra: []string{"criticism " + h.Text, "problems with " + h.Text},
	}
}
