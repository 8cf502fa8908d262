// Package fetch downloads pages for search hits that came back without text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/extract/adapters"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const fetchMaxAttempts = 3

// fetchSleepFunc waits between retries and stops early when the context ends (injectable for tests)
var fetchSleepFunc = worker.Sleep

// ErrDisallowed is returned when robots.txt forbids the fetch
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError reports a non-2xx response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Page is the readable content of a fetched URL
type Page struct {
	URL          string
	FinalURL     string
	Title        string
	Text         string
	ContentType  string
	LastModified string
	Adapter      string
}

// Fetcher downloads pages and extracts their readable text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	registry   *adapters.Registry
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher. limiter and logger may be nil.
func NewFetcher(cfg model.FetchConfig, proxy model.HTTPConfig, limiter *worker.Limiter, logger *zap.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		registry:   adapters.NewRegistry(),
		logger:     logging.OrNop(logger),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, httpClient)
	}
	return f
}

// Fetch downloads rawURL, retrying transient failures, and extracts its text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var delay time.Duration
	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		delay = crawlDelay
	}

	var lastErr error
	for attempt := 0; attempt < fetchMaxAttempts; attempt++ {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return nil, err
		}

		page, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < fetchMaxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			f.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Error(err), zap.Duration("backoff", backoff))
			if err := fetchSleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && mediaType != "text/html" && mediaType != "application/xhtml+xml" && mediaType != "text/plain" {
		return nil, fmt.Errorf("fetch %s: unsupported content type %q", rawURL, mediaType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{
		URL:          rawURL,
		FinalURL:     resp.Request.URL.String(),
		ContentType:  contentType,
		LastModified: resp.Header.Get("Last-Modified"),
	}

	if mediaType == "text/plain" {
		page.Text = strings.Join(strings.Fields(string(body)), " ")
		page.Title = SubjectFromURL(page.FinalURL)
		return page, nil
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	adapter := f.registry.FindAdapter(page.FinalURL)
	page.Adapter = adapter.Name()
	page.Text = extract.VisibleText(adapter.ContentRoot(doc), adapter.Skip)
	page.Title = documentTitle(doc)
	if page.Title == "" {
		page.Title = SubjectFromURL(page.FinalURL)
	}
	return page, nil
}

func retryable(err error) bool {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Code == http.StatusTooManyRequests || serr.Code >= 500
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func documentTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// SubjectFromURL derives a readable subject from the last path segment of a URL
func SubjectFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
