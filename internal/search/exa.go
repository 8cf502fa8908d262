package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
	"go.uber.org/zap"
)

const defaultExaURL = "https://api.exa.ai"

// exaSleepFunc waits between retries and stops early when the context ends (injectable for tests)
var exaSleepFunc = worker.Sleep

// ExaConfig configures the Exa client
type ExaConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Defaults   Filters // applied to queries that leave a filter unset

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ExaClient searches the Exa neural search API
type ExaClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	defaults   Filters
	limiter    *worker.Limiter
	logger     *zap.Logger
}

type exaRequest struct {
	Query              string      `json:"query"`
	NumResults         int         `json:"numResults"`
	Contents           exaContents `json:"contents"`
	IncludeDomains     []string    `json:"includeDomains,omitempty"`
	ExcludeDomains     []string    `json:"excludeDomains,omitempty"`
	StartPublishedDate string      `json:"startPublishedDate,omitempty"`
	Category           string      `json:"category,omitempty"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []struct {
		URL           string  `json:"url"`
		Title         string  `json:"title"`
		Text          string  `json:"text"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

type exaError struct {
	Error string `json:"error"`
}

// NewExaClient creates an Exa client. limiter and logger may be nil.
func NewExaClient(cfg ExaConfig, limiter *worker.Limiter, logger *zap.Logger) (*ExaClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Exa API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultExaURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &ExaClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		maxRetries: maxRetries,
		defaults:   cfg.Defaults,
		limiter:    limiter,
		logger:     logging.OrNop(logger),
	}, nil
}

// Search runs a query, retrying rate-limited and server-side failures with exponential backoff
func (c *ExaClient) Search(ctx context.Context, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, &SearchError{Query: q.Text, Err: errors.New("empty query")}
	}
	if q.NumResults <= 0 {
		q.NumResults = 3
	}
	q.Filters = q.Filters.WithDefaults(c.defaults)

	var (
		results []Result
		err     error
	)
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		results, err = c.searchOnce(ctx, q)
		if err == nil {
			break
		}

		var serr *SearchError
		if !errors.As(err, &serr) || !serr.Retryable() || ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying search",
				zap.String("query", q.Text),
				zap.Int("status", serr.StatusCode),
				zap.Duration("backoff", backoff))
			if exaSleepFunc(ctx, backoff) != nil {
				break
			}
		}
	}

	switch {
	case err != nil:
		metrics.SearchCalls.WithLabelValues("error").Inc()
		return nil, err
	case len(results) == 0:
		metrics.SearchCalls.WithLabelValues("empty").Inc()
	default:
		metrics.SearchCalls.WithLabelValues("ok").Inc()
	}
	return results, nil
}

func (c *ExaClient) searchOnce(ctx context.Context, q Query) ([]Result, error) {
	fail := func(status int, err error) error {
		return &SearchError{Query: q.Text, StatusCode: status, Err: err}
	}

	if err := c.limiter.WaitURL(ctx, c.baseURL); err != nil {
		return nil, fail(0, fmt.Errorf("rate limit: %w", err))
	}

	apiReq := exaRequest{
		Query:          q.Text,
		NumResults:     q.NumResults,
		Contents:       exaContents{Text: true},
		IncludeDomains: q.Filters.IncludeDomains,
		ExcludeDomains: q.Filters.ExcludeDomains,
		Category:       q.Filters.Category,
	}
	if q.Filters.StartPublishedDate != nil {
		apiReq.StartPublishedDate = q.Filters.StartPublishedDate.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fail(0, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fail(0, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fail(0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(httpResp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr exaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fail(httpResp.StatusCode, errors.New(apiErr.Error))
		}
		return nil, fail(httpResp.StatusCode, fmt.Errorf("API error: %s", string(respBody)))
	}

	var resp exaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fail(httpResp.StatusCode, fmt.Errorf("unmarshal response: %w", err))
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Text:          r.Text,
			Score:         r.Score,
			PublishedDate: parsePublishedDate(r.PublishedDate),
		})
	}
	return results, nil
}

// parsePublishedDate accepts RFC 3339 timestamps and bare dates
func parsePublishedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
