package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := exaSleepFunc
	exaSleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { exaSleepFunc = orig })
	return &slept
}

func TestExaClient_Search(t *testing.T) {
	var got exaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing API key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://nasa.gov/mars","title":"Mars Moons","text":"Phobos and Deimos","score":0.91,"publishedDate":"2023-04-01T00:00:00.000Z"},
			{"url":"","title":"dropped"},
			{"url":"https://example.edu/deimos","title":"Deimos","text":"","score":0.5,"publishedDate":"2021-06-15"}
		]}`))
	}))
	defer server.Close()

	client, err := NewExaClient(ExaConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Defaults: Filters{ExcludeDomains: []string{"reddit.com"}},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewExaClient: %v", err)
	}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	results, err := client.Search(context.Background(), Query{
		Text:       "mars moons phobos deimos",
		NumResults: 3,
		Filters:    Filters{StartPublishedDate: &start, Category: "research paper"},
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	wantReq := exaRequest{
		Query:              "mars moons phobos deimos",
		NumResults:         3,
		Contents:           exaContents{Text: true},
		ExcludeDomains:     []string{"reddit.com"},
		StartPublishedDate: "2020-01-01T00:00:00Z",
		Category:           "research paper",
	}
	if diff := cmp.Diff(wantReq, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://nasa.gov/mars" || results[0].Text != "Phobos and Deimos" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[0].PublishedDate == nil || results[0].PublishedDate.Year() != 2023 {
		t.Errorf("expected parsed 2023 published date, got %v", results[0].PublishedDate)
	}
	if results[1].PublishedDate == nil || results[1].PublishedDate.Month() != time.June {
		t.Errorf("expected bare date to parse, got %v", results[1].PublishedDate)
	}
}

func TestExaClient_RetriesTransientFailures(t *testing.T) {
	slept := noSleep(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"url":"https://nasa.gov"}]}`))
	}))
	defer server.Close()

	client, _ := NewExaClient(ExaConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: 3}, nil, nil)
	results, err := client.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, *slept); diff != "" {
		t.Errorf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestExaClient_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.AfterFunc(50*time.Millisecond, cancel)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewExaClient(ExaConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: 3}, nil, nil)

	start := time.Now()
	_, err := client.Search(ctx, Query{Text: "q"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("search waited %v, want it to stop when the context ended", elapsed)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestExaClient_ClientErrorNotRetried(t *testing.T) {
	noSleep(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client, _ := NewExaClient(ExaConfig{APIKey: "bad", BaseURL: server.URL, MaxRetries: 3}, nil, nil)
	_, err := client.Search(context.Background(), Query{Text: "q"})

	var serr *SearchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SearchError, got %v", err)
	}
	if serr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", serr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", got)
	}
}

func TestExaClient_EmptyQuery(t *testing.T) {
	client, _ := NewExaClient(ExaConfig{APIKey: "k"}, nil, nil)
	if _, err := client.Search(context.Background(), Query{Text: "  "}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestNewExaClient_RequiresKey(t *testing.T) {
	if _, err := NewExaClient(ExaConfig{}, nil, nil); err == nil {
		t.Error("expected error without API key")
	}
}

func TestSearchError_Retryable(t *testing.T) {
	tests := []struct {
		err  SearchError
		want bool
	}{
		{SearchError{StatusCode: 429}, true},
		{SearchError{StatusCode: 503}, true},
		{SearchError{StatusCode: 400}, false},
		{SearchError{Err: errors.New("dial tcp: connection refused")}, true},
		{SearchError{Err: errors.New("malformed")}, false},
	}
	for _, tt := range tests {
		if got := tt.err.Retryable(); got != tt.want {
			t.Errorf("Retryable(%+v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
