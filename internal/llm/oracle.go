package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"go.uber.org/zap"
)

// Oracle answers structured questions: it renders a prompt with vars and decodes
// the answer into out, which must be a pointer to the expected schema.
type Oracle interface {
	Complete(ctx context.Context, prompt Prompt, vars map[string]any, out any) error
}

// ErrorKind classifies oracle failures
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable" // Guard open after repeated failures
	KindPrompt      ErrorKind = "prompt"      // Template could not be rendered
	KindTransport   ErrorKind = "transport"   // Backend call failed
	KindParse       ErrorKind = "parse"       // Answer was not the expected JSON
	KindSchema      ErrorKind = "schema"      // Answer violated schema constraints
)

// OracleError reports a failed oracle call
type OracleError struct {
	Kind   ErrorKind
	Prompt string
	Err    error
}

func (e *OracleError) Error() string {
	if e.Prompt == "" {
		return fmt.Sprintf("oracle %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("oracle %s error (%s): %v", e.Kind, e.Prompt, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

var (
	errEmptyFailure  = errors.New("call failed without a reason")
	errGuardOpen     = errors.New("too many consecutive failures, calls paused")
	errNoJSONPayload = errors.New("no JSON object in response")
)

// Client is the Oracle backed by an LLM provider
type Client struct {
	provider  Provider
	guard     *Guard
	validate  *validator.Validate
	maxTokens int
	logger    *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithGuard sets the failure guard
func WithGuard(g *Guard) ClientOption {
	return func(c *Client) { c.guard = g }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMaxTokens overrides the provider's response limit
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// NewClient creates an oracle client over a provider
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// Complete renders the prompt, calls the provider and decodes the JSON answer into out.
// Every failure is returned as an *OracleError.
func (c *Client) Complete(ctx context.Context, prompt Prompt, vars map[string]any, out any) error {
	start := time.Now()
	err := c.complete(ctx, prompt, vars, out)
	metrics.OracleLatency.WithLabelValues(prompt.Name).Observe(time.Since(start).Seconds())

	outcome := "ok"
	var oerr *OracleError
	if errors.As(err, &oerr) {
		outcome = string(oerr.Kind)
		c.logger.Debug("oracle call failed",
			zap.String("prompt", prompt.Name),
			zap.String("kind", outcome),
			zap.Error(oerr.Err))
	}
	metrics.OracleCalls.WithLabelValues(prompt.Name, outcome).Inc()

	return err
}

func (c *Client) complete(ctx context.Context, prompt Prompt, vars map[string]any, out any) error {
	fail := func(kind ErrorKind, err error) error {
		return &OracleError{Kind: kind, Prompt: prompt.Name, Err: err}
	}

	if !c.guard.Allow() {
		return fail(KindUnavailable, errGuardOpen)
	}

	text, err := prompt.Render(vars)
	if err != nil {
		return fail(KindPrompt, err)
	}

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		System:    prompt.System,
		Prompt:    text,
		JSON:      true,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		c.guard.RecordFailure()
		return fail(KindTransport, err)
	}
	c.guard.RecordSuccess()

	payload, err := ExtractJSON(resp.Text)
	if err != nil {
		return fail(KindParse, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fail(KindParse, err)
	}
	if err := c.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return fail(KindSchema, err)
		}
	}

	return nil
}

// ExtractJSON returns the outermost JSON object in text, tolerating Markdown code fences
// and prose around the payload.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errNoJSONPayload
	}
	return text[start : end+1], nil
}
