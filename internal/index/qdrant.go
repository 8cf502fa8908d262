package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// textKey holds the document text inside a Qdrant payload
const textKey = "text"

// QdrantIndex stores embedded documents in a Qdrant collection over its REST API
type QdrantIndex struct {
	base       string
	collection string
	dimensions int
	embedder   Embedder
	http       *http.Client

	mu      sync.Mutex
	ensured bool
}

// NewQdrantIndex creates a Qdrant-backed index. The collection is created on first write.
func NewQdrantIndex(baseURL, collection string, dimensions int, embedder Embedder, httpClient *http.Client) (*QdrantIndex, error) {
	if baseURL == "" {
		return nil, errors.New("qdrant URL is required")
	}
	if embedder == nil {
		return nil, errors.New("qdrant index needs an embedder")
	}
	if collection == "" {
		collection = "veritas_evidence"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &QdrantIndex{
		base:       strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		dimensions: dimensions,
		embedder:   embedder,
		http:       httpClient,
	}, nil
}

type qdrantPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload"`
}

type qdrantPointsResponse struct {
	Result struct {
		Points []qdrantPoint `json:"points"`
	} `json:"result"`
	Status any `json:"status"`
}

type qdrantCountResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

type qdrantMatch struct {
	Key   string `json:"key"`
	Match struct {
		Value any `json:"value"`
	} `json:"match"`
}

// AddDocuments embeds and upserts docs
func (q *QdrantIndex) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := q.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	points := make([]qdrantPoint, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return errors.New("document has no ID")
		}
		payload := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			payload[k] = v
		}
		payload[textKey] = d.Text
		points[i] = qdrantPoint{ID: d.ID, Vector: vectors[i], Payload: payload}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.base, q.collection)
	return q.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
}

// Query embeds text and returns the n nearest documents
func (q *QdrantIndex) Query(ctx context.Context, text string, n int, filter Filter) ([]Match, error) {
	if n <= 0 {
		n = 5
	}
	vectors, err := q.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}

	body := map[string]any{
		"query":        vectors[0],
		"limit":        n,
		"with_payload": true,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp qdrantPointsResponse
	url := fmt.Sprintf("%s/collections/%s/points/query", q.base, q.collection)
	if err := q.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		matches = append(matches, Match{Document: pointDocument(p), Score: p.Score})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// SearchByClaim scrolls through documents recorded for claimID
func (q *QdrantIndex) SearchByClaim(ctx context.Context, claimID string, n int) ([]Document, error) {
	if n <= 0 {
		n = 10
	}
	body := map[string]any{
		"filter":       qdrantFilter(Filter{ClaimIDKey: claimID}),
		"limit":        n,
		"with_payload": true,
	}

	var resp qdrantPointsResponse
	url := fmt.Sprintf("%s/collections/%s/points/scroll", q.base, q.collection)
	if err := q.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		docs = append(docs, pointDocument(p))
	}
	return docs, nil
}

// Count returns the exact number of points in the collection
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	var resp qdrantCountResponse
	url := fmt.Sprintf("%s/collections/%s/points/count", q.base, q.collection)
	if err := q.do(ctx, http.MethodPost, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured {
		return nil
	}

	url := fmt.Sprintf("%s/collections/%s", q.base, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := q.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := map[string]any{
			"vectors": map[string]any{"size": q.dimensions, "distance": "Cosine"},
		}
		if err := q.do(ctx, http.MethodPut, url, body, nil); err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
	}

	q.ensured = true
	return nil
}

func (q *QdrantIndex) do(ctx context.Context, method, url string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode qdrant response: %w", err)
	}
	return nil
}

func qdrantFilter(f Filter) map[string]any {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]qdrantMatch, 0, len(keys))
	for _, k := range keys {
		m := qdrantMatch{Key: k}
		m.Match.Value = f[k]
		must = append(must, m)
	}
	return map[string]any{"must": must}
}

func pointDocument(p qdrantPoint) Document {
	doc := Document{ID: fmt.Sprint(p.ID), Metadata: make(map[string]any, len(p.Payload))}
	for k, v := range p.Payload {
		if k == textKey {
			doc.Text, _ = v.(string)
			continue
		}
		doc.Metadata[k] = v
	}
	return doc
}
