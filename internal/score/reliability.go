package score

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultScore is assigned to well-formed URLs on unknown domains
	DefaultScore = 50.0

	// InvalidURLScore is assigned when no host can be extracted
	InvalidURLScore = 30.0
)

// Modifiers are optional facts about a source that adjust its base score
type Modifiers struct {
	HasCitations         bool // Cites primary sources
	IsRecent             bool // Published within the last 12 months
	IsPrimary            bool // Is itself the primary source
	PeerReviewed         bool
	ConflictOfInterest   bool
	ContradictsConsensus bool // Contradicts multiple higher-tier sources
	UnverifiedClaims     bool
}

// Modifier deltas applied by ScoreWithModifiers
const (
	DeltaHasCitations         = 10.0
	DeltaIsRecent             = 5.0
	DeltaIsPrimary            = 15.0
	DeltaPeerReviewed         = 12.0
	DeltaConflictOfInterest   = -20.0
	DeltaContradictsConsensus = -15.0
	DeltaUnverifiedClaims     = -10.0
)

// ReliabilityScorer maps URLs to reliability scores in [0,100].
// It holds no mutable state; the same URL always yields the same score.
type ReliabilityScorer struct {
	domains map[string]float64
	tlds    map[string]float64
}

// NewReliabilityScorer creates a scorer over the given table.
// The table is copied so later changes to it have no effect.
func NewReliabilityScorer(table Table) *ReliabilityScorer {
	s := &ReliabilityScorer{
		domains: make(map[string]float64, len(table.Domains)),
		tlds:    make(map[string]float64, len(table.TLDs)),
	}
	for domain, v := range table.Domains {
		s.domains[normalizeHost(domain)] = Clamp(v)
	}
	for tld, v := range table.TLDs {
		s.tlds[strings.TrimPrefix(strings.ToLower(tld), ".")] = Clamp(v)
	}
	return s
}

// NewDefaultReliabilityScorer creates a scorer over the built-in table
func NewDefaultReliabilityScorer() *ReliabilityScorer {
	return NewReliabilityScorer(DefaultTable())
}

// ScoreURL returns the base reliability score for a URL.
//
// Lookup order: exact domain, parent domains (longest first), TLD suffixes
// (longest first), then DefaultScore. Unparseable URLs score InvalidURLScore.
func (s *ReliabilityScorer) ScoreURL(rawURL string) float64 {
	host := Domain(rawURL)
	if host == "" {
		return InvalidURLScore
	}

	suffixes := domainSuffixes(host)

	for _, candidate := range suffixes {
		if v, ok := s.domains[candidate]; ok {
			return v
		}
	}

	for _, candidate := range suffixes {
		if v, ok := s.tlds[candidate]; ok {
			return v
		}
	}

	return DefaultScore
}

// ScoreWithModifiers returns the base score plus the active modifier deltas, clamped to [0,100]
func (s *ReliabilityScorer) ScoreWithModifiers(rawURL string, m Modifiers) float64 {
	return Clamp(s.ScoreURL(rawURL) + m.Delta())
}

// Explain returns a one-line, human-readable account of a URL's score
func (s *ReliabilityScorer) Explain(rawURL string) string {
	v := s.ScoreURL(rawURL)
	tier := TierFor(v)
	return fmt.Sprintf("Domain '%s' scored %.0f/100 (Tier %d: %s)", Domain(rawURL), v, tier.Level, tier.Name)
}

// Delta returns the sum of the active modifier deltas
func (m Modifiers) Delta() float64 {
	delta := 0.0
	if m.HasCitations {
		delta += DeltaHasCitations
	}
	if m.IsRecent {
		delta += DeltaIsRecent
	}
	if m.IsPrimary {
		delta += DeltaIsPrimary
	}
	if m.PeerReviewed {
		delta += DeltaPeerReviewed
	}
	if m.ConflictOfInterest {
		delta += DeltaConflictOfInterest
	}
	if m.ContradictsConsensus {
		delta += DeltaContradictsConsensus
	}
	if m.UnverifiedClaims {
		delta += DeltaUnverifiedClaims
	}
	return delta
}

// Tier is a named reliability band
type Tier struct {
	Level int    `json:"tier"`
	Name  string `json:"name"`
}

// TierFor returns the reliability band of a score
func TierFor(v float64) Tier {
	switch {
	case v >= 90:
		return Tier{Level: 1, Name: "Primary/Official"}
	case v >= 80:
		return Tier{Level: 2, Name: "Established Media"}
	case v >= 65:
		return Tier{Level: 3, Name: "Industry Publication"}
	case v >= 50:
		return Tier{Level: 4, Name: "General News"}
	case v >= 20:
		return Tier{Level: 5, Name: "Blog/UGC"}
	default:
		return Tier{Level: 6, Name: "Forum/Social"}
	}
}

// Clamp bounds a score to [0,100]
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Domain extracts the lowercased host of a URL without port or "www." prefix.
// It returns "" when the URL has no host.
func Domain(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	return strings.TrimPrefix(host, "www.")
}

// domainSuffixes returns host and each parent domain, longest first
// (e.g., "a.b.org" -> ["a.b.org", "b.org", "org"])
func domainSuffixes(host string) []string {
	suffixes := []string{host}
	for i := 0; i < len(host); i++ {
		if host[i] == '.' && i+1 < len(host) {
			suffixes = append(suffixes, host[i+1:])
		}
	}
	return suffixes
}
