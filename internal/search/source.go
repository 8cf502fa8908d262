// Package search queries evidence sources for web content relevant to a claim.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source is a semantic web search backend
type Source interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Query is one search request
type Query struct {
	Text       string
	NumResults int
	Filters    Filters
}

// Filters narrow a search
type Filters struct {
	IncludeDomains     []string
	ExcludeDomains     []string
	StartPublishedDate *time.Time
	Category           string
}

// IsZero reports whether no filter is set
func (f Filters) IsZero() bool {
	return len(f.IncludeDomains) == 0 && len(f.ExcludeDomains) == 0 &&
		f.StartPublishedDate == nil && f.Category == ""
}

// WithDefaults fills unset fields of f from defaults
func (f Filters) WithDefaults(defaults Filters) Filters {
	if len(f.IncludeDomains) == 0 {
		f.IncludeDomains = defaults.IncludeDomains
	}
	if len(f.ExcludeDomains) == 0 {
		f.ExcludeDomains = defaults.ExcludeDomains
	}
	if f.StartPublishedDate == nil {
		f.StartPublishedDate = defaults.StartPublishedDate
	}
	if f.Category == "" {
		f.Category = defaults.Category
	}
	return f
}

// Allows reports whether rawURL passes the domain filters
func (f Filters) Allows(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	for _, d := range f.ExcludeDomains {
		if matchesDomain(host, d) {
			return false
		}
	}
	if len(f.IncludeDomains) == 0 {
		return true
	}
	for _, d := range f.IncludeDomains {
		if matchesDomain(host, d) {
			return true
		}
	}
	return false
}

func matchesDomain(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Result is one ranked hit
type Result struct {
	URL           string     `json:"url" yaml:"url"`
	Title         string     `json:"title,omitempty" yaml:"title,omitempty"`
	Text          string     `json:"text,omitempty" yaml:"text,omitempty"`
	Score         float64    `json:"score,omitempty" yaml:"score,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// SearchError reports a failed search. Callers treat it as zero results.
type SearchError struct {
	Query      string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *SearchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %q failed (%d): %v", e.Query, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying
func (e *SearchError) Retryable() bool {
	if e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600) {
		return true
	}
	if e.StatusCode != 0 || e.Err == nil {
		return false
	}
	s := strings.ToLower(e.Err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
