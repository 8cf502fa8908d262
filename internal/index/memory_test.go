package index

import (
	"context"
	"testing"
)

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	docs := []Document{
		{ID: DocumentID("a"), Text: "Mars has two moons, Phobos and Deimos.", Metadata: map[string]any{ClaimIDKey: "claim_1", "agent": "pro"}},
		{ID: DocumentID("b"), Text: "Jupiter has many moons.", Metadata: map[string]any{ClaimIDKey: "claim_2", "agent": "pro"}},
		{ID: DocumentID("c"), Text: "Deimos is the smaller moon of Mars.", Metadata: map[string]any{ClaimIDKey: "claim_1", "agent": "contra"}},
	}
	if err := idx.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	// Re-adding the same ID replaces rather than duplicates
	if err := idx.AddDocuments(ctx, docs[:1]); err != nil {
		t.Fatalf("AddDocuments again: %v", err)
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	matches, err := idx.Query(ctx, "moons of Mars", 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != docs[0].ID {
		t.Errorf("best match = %q, want the Mars moons document", matches[0].Text)
	}

	filtered, _ := idx.Query(ctx, "moons", 10, Filter{"agent": "contra"})
	if len(filtered) != 0 {
		t.Errorf("expected no contra document mentioning 'moons', got %+v", filtered)
	}

	byClaim, err := idx.SearchByClaim(ctx, "claim_1", 10)
	if err != nil {
		t.Fatalf("SearchByClaim: %v", err)
	}
	if len(byClaim) != 2 || byClaim[0].ID != docs[0].ID || byClaim[1].ID != docs[2].ID {
		t.Errorf("SearchByClaim = %+v", byClaim)
	}

	if limited, _ := idx.SearchByClaim(ctx, "claim_1", 1); len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestMemoryIndex_RejectsMissingID(t *testing.T) {
	if err := NewMemoryIndex().AddDocuments(context.Background(), []Document{{Text: "x"}}); err == nil {
		t.Error("expected error for document without ID")
	}
}

func TestDocumentID(t *testing.T) {
	if DocumentID("same") != DocumentID("same") {
		t.Error("DocumentID should be deterministic")
	}
	if DocumentID("a") == DocumentID("b") {
		t.Error("different content should give different IDs")
	}
}
