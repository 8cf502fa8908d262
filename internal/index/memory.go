package index

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryIndex ranks documents by term overlap. It needs no embedding backend.
type MemoryIndex struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
	terms map[string]map[string]struct{}
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:  make(map[string]Document),
		terms: make(map[string]map[string]struct{}),
	}
}

// AddDocuments inserts or replaces documents
func (m *MemoryIndex) AddDocuments(ctx context.Context, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		if d.ID == "" {
			return errors.New("document has no ID")
		}
		if _, exists := m.docs[d.ID]; !exists {
			m.order = append(m.order, d.ID)
		}
		m.docs[d.ID] = d

		set := make(map[string]struct{})
		for _, t := range terms(d.Text) {
			set[t] = struct{}{}
		}
		m.terms[d.ID] = set
	}
	return nil
}

// Query returns up to n documents sharing the most terms with text
func (m *MemoryIndex) Query(ctx context.Context, text string, n int, filter Filter) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := make(map[string]struct{})
	for _, t := range terms(text) {
		query[t] = struct{}{}
	}
	if len(query) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, id := range m.order {
		doc := m.docs[id]
		if !filter.matches(doc.Metadata) {
			continue
		}
		shared := 0
		for t := range query {
			if _, ok := m.terms[id][t]; ok {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		matches = append(matches, Match{Document: doc, Score: float64(shared) / float64(len(query))})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// SearchByClaim returns up to n documents recorded for a claim, in insertion order
func (m *MemoryIndex) SearchByClaim(ctx context.Context, claimID string, n int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	filter := Filter{ClaimIDKey: claimID}
	var out []Document
	for _, id := range m.order {
		if doc := m.docs[id]; filter.matches(doc.Metadata) {
			out = append(out, doc)
			if n > 0 && len(out) == n {
				break
			}
		}
	}
	return out, nil
}

// Count returns the number of documents
func (m *MemoryIndex) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}
