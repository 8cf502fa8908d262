package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Static replays canned results. Queries are matched case-insensitively; unmatched
// queries get Default. It backs offline runs (--replay) and tests.
type Static struct {
	Queries map[string][]Result `yaml:"queries"`
	Default []Result            `yaml:"default"`

	// Fail, when set, makes every query whose text contains it fail
	Fail string `yaml:"fail,omitempty"`

	mu    sync.Mutex
	calls []Query
}

// NewStatic returns a replay source that answers every query with results
func NewStatic(results ...Result) *Static {
	return &Static{Default: results}
}

// LoadStatic reads a replay fixture from a YAML file
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}

	var s Static
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse replay file: %w", err)
	}

	return &s, nil
}

// Search returns the recorded results for q, filtered and truncated to q.NumResults
func (s *Static) Search(ctx context.Context, q Query) ([]Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &SearchError{Query: q.Text, Err: err}
	}
	if s.Fail != "" && strings.Contains(strings.ToLower(q.Text), strings.ToLower(s.Fail)) {
		return nil, &SearchError{Query: q.Text, StatusCode: 500, Err: errors.New("replayed failure")}
	}

	candidates := s.lookup(q.Text)

	var out []Result
	for _, r := range candidates {
		if !q.Filters.Allows(r.URL) {
			continue
		}
		out = append(out, r)
		if q.NumResults > 0 && len(out) == q.NumResults {
			break
		}
	}
	return out, nil
}

func (s *Static) lookup(text string) []Result {
	key := normalizeQuery(text)
	if results, ok := s.Queries[key]; ok {
		return results
	}
	for q, results := range s.Queries {
		if normalizeQuery(q) == key {
			return results
		}
	}
	return s.Default
}

// Calls returns the queries received so far
func (s *Static) Calls() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.calls...)
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
