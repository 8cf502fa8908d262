package model

import "strings"

// Hypothesis is the top-level statement under validation
type Hypothesis struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"` // Optional framing supplied by the caller
}

// Refine returns a copy of the hypothesis with its text replaced.
// Blank refinements leave the hypothesis unchanged.
func (h Hypothesis) Refine(text string) Hypothesis {
	text = strings.TrimSpace(text)
	if text == "" {
		return h
	}
	h.Text = text
	return h
}

// Claim is one atomic, independently verifiable sub-statement of a hypothesis.
// Claims are created by decomposition and never mutated afterwards.
type Claim struct {
	ID                  string   `json:"id"`                    // Unique within a run (e.g., "claim_1")
	Text                string   `json:"text"`                  // The claim itself
	EvidenceNeeded      string   `json:"evidence_needed"`       // What would support it
	RefutationWouldBe   string   `json:"refutation_would_be"`   // What would refute it
	SearchQueriesPro    []string `json:"search_queries_pro"`    // Queries looking for support
	SearchQueriesContra []string `json:"search_queries_contra"` // Queries looking for refutation
}

// Clone returns a deep copy of the claim
func (c Claim) Clone() Claim {
	c.SearchQueriesPro = append([]string(nil), c.SearchQueriesPro...)
	c.SearchQueriesContra = append([]string(nil), c.SearchQueriesContra...)
	return c
}
