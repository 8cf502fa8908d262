// Package index stores evidence text for similarity lookups.
package index

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Document is one indexed text with its metadata
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a query hit
type Match struct {
	Document
	Score float64 `json:"score"`
}

// Filter restricts matches to documents whose metadata equals every entry
type Filter map[string]any

// Index is a similarity index over documents. Adding a document with an existing ID replaces it.
type Index interface {
	AddDocuments(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, n int, filter Filter) ([]Match, error)
	SearchByClaim(ctx context.Context, claimID string, n int) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ClaimIDKey is the metadata key SearchByClaim filters on
const ClaimIDKey = "claim_id"

var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/veritas/evidence"))

// DocumentID derives a stable ID from content, so re-adding the same content is idempotent
func DocumentID(content string) string {
	return uuid.NewSHA1(documentNamespace, []byte(content)).String()
}

func (f Filter) matches(md map[string]any) bool {
	for k, want := range f {
		got, ok := md[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// terms splits text into lowercase alphanumeric words
func terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}
