package pipeline

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
)

// Renderer writes reports as JSON, Markdown and terminal summaries
type Renderer struct {
	includeFooter bool
	topSources    int
}

// NewRenderer creates a renderer; topSources limits the sources printed to the terminal
func NewRenderer(includeFooter bool, topSources int) *Renderer {
	if topSources <= 0 {
		topSources = 5
	}
	return &Renderer{includeFooter: includeFooter, topSources: topSources}
}

// RenderJSON writes the report in its persisted JSON shape
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the Markdown form of the report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Hypothesis Validation Report\n\n")
	fmt.Fprintf(&b, "**Hypothesis:** %s\n\n", report.Hypothesis)
	fmt.Fprintf(&b, "**Verdict:** %s %s\n\n", verdictMarker(report.Verdict), report.Verdict)
	fmt.Fprintf(&b, "**Confidence:** %.0f/100\n\n", report.ConfidenceScore)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(report.ExecutiveSummary)
	b.WriteString("\n\n")

	if len(report.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		for i, f := range report.Findings {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, f.Claim.Text)
			fmt.Fprintf(&b, "- Verdict: %s %s\n", verdictMarker(f.Verdict), f.Verdict)
			fmt.Fprintf(&b, "- Confidence: %.0f/100\n", f.ConfidenceScore)
			fmt.Fprintf(&b, "- Evidence: %d sources\n\n", len(f.Evidence))
			if f.Summary != "" {
				fmt.Fprintf(&b, "%s\n\n", f.Summary)
			}
			for _, ev := range f.Evidence {
				label := ev.Polarity()
				if ev.Contextual {
					label = "context"
				}
				title := ev.Title
				if title == "" {
					title = ev.URL
				}
				fmt.Fprintf(&b, "- [%s] [%s](%s) (reliability %.0f, confidence %.0f)\n",
					label, title, ev.URL, ev.SourceReliabilityScore, ev.ConfidenceScore)
			}
			if len(f.Evidence) > 0 {
				b.WriteString("\n")
			}
		}
	}

	if len(report.MissingInformation) > 0 {
		b.WriteString("## Missing Information\n\n")
		for _, m := range report.MissingInformation {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(report.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, s := range report.Sources {
			fmt.Fprintf(&b, "- %s (score %s)\n", s.URL, s.Score)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("*Generated by Veritas. Verdicts reflect the evidence that was found, not ground truth.*\n")
	}

	return b.String()
}

// RenderSummary prints a short terminal summary of a run
func (r *Renderer) RenderSummary(w io.Writer, res *Result) {
	report := res.Report

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s %s  (confidence %.0f/100)\n", verdictMarker(report.Verdict), report.Verdict, report.ConfidenceScore)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Hypothesis:  %s\n", report.Hypothesis)
	fmt.Fprintf(w, "  Iterations:  %d\n", res.Iterations)
	if res.Interrupted {
		fmt.Fprintln(w, "  Status:      interrupted, showing the latest report")
	}
	fmt.Fprintln(w)

	if report.ExecutiveSummary != "" {
		fmt.Fprintf(w, "  %s\n\n", report.ExecutiveSummary)
	}

	for _, f := range report.Findings {
		fmt.Fprintf(w, "  %s %-16s %3.0f  %s\n", verdictMarker(f.Verdict), f.Verdict, f.ConfidenceScore, f.Claim.Text)
	}
	if len(report.Findings) > 0 {
		summary := score.Summarize(report.Findings)
		fmt.Fprintf(w, "\n  Mean claim confidence: %.0f (strong: %d, weak: %d)\n",
			summary.Overall, len(summary.StrongClaims), len(summary.WeakClaims))
	}

	if top := r.TopSources(report.Sources); len(top) > 0 {
		fmt.Fprintln(w, "\n  Top sources:")
		for _, s := range top {
			fmt.Fprintf(w, "    [%s] %s\n", s.Score, s.URL)
		}
	}

	if len(report.MissingInformation) > 0 {
		fmt.Fprintln(w, "\n  Missing information:")
		for _, m := range report.MissingInformation {
			fmt.Fprintf(w, "    - %s\n", m)
		}
	}
	fmt.Fprintln(w)
}

// TopSources returns the highest scoring sources, ties kept in report order
func (r *Renderer) TopSources(sources []model.Source) []model.Source {
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b model.Source) int {
		return cmp.Compare(parseScore(b.Score), parseScore(a.Score))
	})
	if len(sorted) > r.topSources {
		sorted = sorted[:r.topSources]
	}
	return sorted
}

func parseScore(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func verdictMarker(v model.Verdict) string {
	switch v {
	case model.VerdictValid:
		return "✓"
	case model.VerdictPartiallyValid:
		return "◐"
	case model.VerdictInconclusive:
		return "?"
	case model.VerdictRefuted:
		return "✗"
	default:
		return "!"
	}
}
