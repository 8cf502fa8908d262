package score

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps registrable domains and TLD suffixes to reliability scores
type Table struct {
	Domains map[string]float64 `yaml:"domains"`
	TLDs    map[string]float64 `yaml:"tlds"` // Keys without the leading dot (e.g., "gov.uk")
}

// DefaultTable returns the built-in reputation table
func DefaultTable() Table {
	return Table{
		Domains: map[string]float64{
			// Tier 1: primary and official sources
			"arxiv.org":               92,
			"sec.gov":                 95,
			"who.int":                 95,
			"un.org":                  95,
			"nih.gov":                 95,
			"cdc.gov":                 95,
			"europa.eu":               93,
			"nature.com":              92,
			"science.org":             92,
			"sciencedirect.com":       90,
			"pubmed.ncbi.nlm.nih.gov": 92,
			"scholar.google.com":      85,

			// Tier 2: established media and financial press
			"reuters.com":        88,
			"bloomberg.com":      87,
			"wsj.com":            85,
			"ft.com":             87,
			"nytimes.com":        83,
			"washingtonpost.com": 82,
			"bbc.com":            84,
			"bbc.co.uk":          84,
			"economist.com":      86,
			"apnews.com":         88,
			"afp.com":            87,

			// Tier 3: technology and industry publications
			"techcrunch.com":       72,
			"wired.com":            73,
			"theverge.com":         70,
			"arstechnica.com":      75,
			"technologyreview.com": 78,
			"hbr.org":              80,
			"mckinsey.com":         78,
			"bcg.com":              78,
			"bain.com":             78,
			"deloitte.com":         76,
			"pwc.com":              76,
			"gartner.com":          77,
			"forrester.com":        76,
			"statista.com":         75,

			// Tier 4: general news and reference
			"wikipedia.org":       60,
			"cnn.com":             68,
			"forbes.com":          65,
			"businessinsider.com": 63,
			"cnbc.com":            70,
			"investopedia.com":    68,
			"crunchbase.com":      70,
			"pitchbook.com":       72,

			// Tier 5: blogs and user-generated content
			"medium.com":     40,
			"substack.com":   50,
			"linkedin.com":   45,
			"hackernews.com": 45,
			"dev.to":         45,

			// Tier 6: forums and social networks
			"reddit.com":   25,
			"quora.com":    30,
			"twitter.com":  20,
			"x.com":        20,
			"facebook.com": 15,
		},
		TLDs: map[string]float64{
			"gov":    95,
			"gov.uk": 93,
			"gov.au": 93,
			"edu":    90,
			"edu.au": 88,
			"ac.uk":  88,
			"org":    60,
			"int":    85,
		},
	}
}

// LoadTable reads a YAML file and merges its entries over the default table
func LoadTable(path string) (Table, error) {
	table := DefaultTable()

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read domain table: %w", err)
	}

	var overrides Table
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return table, fmt.Errorf("parse domain table: %w", err)
	}

	for domain, s := range overrides.Domains {
		table.Domains[normalizeHost(domain)] = Clamp(s)
	}
	for tld, s := range overrides.TLDs {
		table.TLDs[strings.TrimPrefix(strings.ToLower(tld), ".")] = Clamp(s)
	}

	return table, nil
}
