package model

import "time"

// Evidence is one scored, polarity-tagged piece of material bearing on a claim.
// URL, Title, SourceReliabilityScore and Contextual are fixed at creation;
// only SupportsClaim, ConfidenceScore and Explanation may change during evaluation.
type Evidence struct {
	URL                    string     `json:"url"`
	Title                  string     `json:"title,omitempty"`
	Content                string     `json:"content"`
	SourceReliabilityScore float64    `json:"source_reliability_score"`
	SupportsClaim          bool       `json:"supports_claim"`
	ConfidenceScore        float64    `json:"confidence_score"`
	Explanation            string     `json:"explanation"`
	Contextual             bool       `json:"contextual,omitempty"`     // Background material, not a supporting argument
	Agent                  string     `json:"agent,omitempty"`          // pro, contra or context
	PublishedDate          *time.Time `json:"published_date,omitempty"` // As reported by the evidence source
}

// Polarity returns "support" or "refute"
func (e Evidence) Polarity() string {
	if e.SupportsClaim {
		return "support"
	}
	return "refute"
}

// ConflictAnalysis is the structured result of conflict resolution for one claim
type ConflictAnalysis struct {
	HasConflicts           bool    `json:"has_conflicts"`
	ConflictDescription    string  `json:"conflict_description,omitempty"`
	Resolution             string  `json:"resolution"`
	WinningPosition        string  `json:"winning_position,omitempty"` // "support", "refute" or empty
	ConfidenceInResolution float64 `json:"confidence_in_resolution"`
}
