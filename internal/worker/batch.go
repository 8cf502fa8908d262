package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

// Runner validates one hypothesis
type Runner interface {
	Validate(ctx context.Context, h model.Hypothesis) (*model.Report, error)
}

// HypothesisJob validates one hypothesis of a batch
type HypothesisJob struct {
	Index      int
	Hypothesis model.Hypothesis
	Runner     Runner
}

// Execute runs the job
func (j *HypothesisJob) Execute(ctx context.Context) Result {
	start := time.Now()
	report, err := j.Runner.Validate(ctx, j.Hypothesis)
	return &BatchResult{
		Index:      j.Index,
		Hypothesis: j.Hypothesis,
		Report:     report,
		Duration:   time.Since(start),
		Error:      err,
	}
}

// BatchResult is the outcome of one hypothesis
type BatchResult struct {
	Index      int
	Hypothesis model.Hypothesis
	Report     *model.Report
	Duration   time.Duration
	Error      error
}

// GetError returns the run error
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor validates many hypotheses concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// Process validates hypotheses and returns results in input order.
// Hypotheses not started before ctx is cancelled are reported with ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, hypotheses []model.Hypothesis) []*BatchResult {
	if len(hypotheses) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, h := range hypotheses {
			if !pool.Submit(&HypothesisJob{Index: i, Hypothesis: h, Runner: b.runner}) {
				return
			}
		}
	}()

	out := make([]*BatchResult, len(hypotheses))
	for result := range pool.Results() {
		br := result.(*BatchResult)
		out[br.Index] = br
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &BatchResult{Index: i, Hypothesis: hypotheses[i], Error: err}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads hypotheses from a file and validates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	hypotheses, err := ReadHypothesesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read hypotheses: %w", err)
	}

	return b.Process(ctx, hypotheses), nil
}

// ReadHypothesesFromFile reads one hypothesis per line. Text after " | " is the
// hypothesis context. Blank lines and lines starting with # are skipped, and
// repeated hypotheses are dropped.
func ReadHypothesesFromFile(filePath string) ([]model.Hypothesis, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var hypotheses []model.Hypothesis
	seen := make(map[model.Hypothesis]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		h := ParseHypothesisLine(line)
		if h.Text == "" || seen[h] {
			continue
		}
		seen[h] = true
		hypotheses = append(hypotheses, h)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return hypotheses, nil
}

// ParseHypothesisLine splits "hypothesis | context"
func ParseHypothesisLine(line string) model.Hypothesis {
	text, framing, _ := strings.Cut(line, " | ")
	return model.Hypothesis{
		Text:    strings.TrimSpace(text),
		Context: strings.TrimSpace(framing),
	}
}
