package score

import (
	"github.com/ppiankov/veritas/internal/model"
)

// Threshold maps an inclusive lower bound on the support ratio to a verdict
type Threshold struct {
	MinRatio float64
	Verdict  model.Verdict
}

// VerdictPolicy is an ordered threshold table, highest bound first.
// The first threshold whose MinRatio is <= the ratio wins.
type VerdictPolicy []Threshold

// DefaultVerdictPolicy is the standard support-ratio table
var DefaultVerdictPolicy = VerdictPolicy{
	{MinRatio: 0.7, Verdict: model.VerdictValid},
	{MinRatio: 0.4, Verdict: model.VerdictPartiallyValid},
	{MinRatio: 0.2, Verdict: model.VerdictInconclusive},
	{MinRatio: 0, Verdict: model.VerdictRefuted},
}

// Verdict returns the verdict for a support ratio
func (p VerdictPolicy) Verdict(ratio float64) model.Verdict {
	for _, t := range p {
		if ratio >= t.MinRatio {
			return t.Verdict
		}
	}
	return model.VerdictRefuted
}

// Aggregate summarizes one claim's evaluated evidence
type Aggregate struct {
	Verdict      model.Verdict
	Confidence   float64 // Mean evidence confidence
	SupportRatio float64
	Supporting   int
	Refuting     int
}

// Aggregate derives the verdict and confidence for an evidence set.
// An empty set is INCONCLUSIVE with confidence 0.
func (p VerdictPolicy) Aggregate(evidence []model.Evidence) Aggregate {
	if len(evidence) == 0 {
		return Aggregate{Verdict: model.VerdictInconclusive}
	}

	var total float64
	agg := Aggregate{}
	for _, e := range evidence {
		total += Clamp(e.ConfidenceScore)
		if e.SupportsClaim {
			agg.Supporting++
		} else {
			agg.Refuting++
		}
	}

	n := float64(len(evidence))
	agg.Confidence = Clamp(total / n)
	agg.SupportRatio = float64(agg.Supporting) / n
	agg.Verdict = p.Verdict(agg.SupportRatio)

	return agg
}

// Finding builds the finding for a claim from its evaluated evidence and resolution summary
func (p VerdictPolicy) Finding(claim model.Claim, evidence []model.Evidence, summary string) model.Finding {
	agg := p.Aggregate(evidence)
	return model.Finding{
		Claim:           claim,
		Evidence:        evidence,
		Verdict:         agg.Verdict,
		ConfidenceScore: agg.Confidence,
		Summary:         summary,
	}
}
