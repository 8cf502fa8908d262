package model

import "fmt"

// Verdict is the outcome assigned to a finding or a report
type Verdict string

const (
	VerdictValid          Verdict = "VALID"
	VerdictPartiallyValid Verdict = "PARTIALLY_VALID"
	VerdictInconclusive   Verdict = "INCONCLUSIVE"
	VerdictRefuted        Verdict = "REFUTED"
	VerdictError          Verdict = "ERROR" // Only produced by report fallbacks
)

// IsValid reports whether v is one of the known verdicts
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictValid, VerdictPartiallyValid, VerdictInconclusive, VerdictRefuted, VerdictError:
		return true
	}
	return false
}

// Finding aggregates the evaluated evidence for one claim in one iteration
type Finding struct {
	Claim           Claim             `json:"claim"`
	Evidence        []Evidence        `json:"evidence"`
	Verdict         Verdict           `json:"verdict"`
	ConfidenceScore float64           `json:"confidence_score"`
	Summary         string            `json:"summary"`
	Conflict        *ConflictAnalysis `json:"conflict,omitempty"` // Set when detailed conflict analysis is enabled
}

// Clone returns a deep copy of the finding
func (f Finding) Clone() Finding {
	f.Claim = f.Claim.Clone()
	f.Evidence = append([]Evidence(nil), f.Evidence...)
	if f.Conflict != nil {
		c := *f.Conflict
		f.Conflict = &c
	}
	return f
}

// Source is a deduplicated reference listed at the end of a report
type Source struct {
	URL   string `json:"url"`
	Score string `json:"score"` // Reliability score rendered as an integer string
}

// Report is the synthesized result of one iteration.
// The JSON shape is the persisted report format.
type Report struct {
	Hypothesis         string    `json:"hypothesis"`
	Verdict            Verdict   `json:"verdict"`
	ConfidenceScore    float64   `json:"confidence_score"`
	ExecutiveSummary   string    `json:"executive_summary"`
	Findings           []Finding `json:"findings"`
	MissingInformation []string  `json:"missing_information"`
	Sources            []Source  `json:"sources"`
}

// Clone returns a deep copy of the report
func (r Report) Clone() Report {
	findings := make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		findings[i] = f.Clone()
	}
	r.Findings = findings
	r.MissingInformation = append([]string(nil), r.MissingInformation...)
	r.Sources = append([]Source(nil), r.Sources...)
	return r
}

// CollectSources lists every evidence URL across findings once, in order of first
// appearance, with its reliability score.
func CollectSources(findings []Finding) []Source {
	seen := make(map[string]bool)
	sources := []Source{}
	for _, f := range findings {
		for _, ev := range f.Evidence {
			if ev.URL == "" || seen[ev.URL] {
				continue
			}
			seen[ev.URL] = true
			sources = append(sources, Source{URL: ev.URL, Score: fmt.Sprintf("%.0f", ev.SourceReliabilityScore)})
		}
	}
	return sources
}
