package llm

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

// Prompt is a named, parsed prompt template
type Prompt struct {
	Name   string
	System string
	tmpl   *template.Template
}

var promptFuncs = template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"score":    func(v float64) string { return fmt.Sprintf("%.0f", v) },
	"truncate": Truncate,
	"join":     strings.Join,
}

// NewPrompt parses a prompt template; it panics on malformed templates
func NewPrompt(name, system, body string) Prompt {
	tmpl := template.Must(template.New(name).
		Funcs(promptFuncs).
		Option("missingkey=error").
		Parse(body))
	return Prompt{Name: name, System: system, tmpl: tmpl}
}

// Render executes the template with vars
func (p Prompt) Render(vars map[string]any) (string, error) {
	if p.tmpl == nil {
		return "", fmt.Errorf("prompt %q has no template", p.Name)
	}
	var b strings.Builder
	if err := p.tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Truncate returns at most n runes of s
func Truncate(n int, s string) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

const analystSystem = "You are a rigorous research analyst. You judge evidence, not opinions. " +
	"Always answer with a single JSON object and nothing else."

// ClarifyPrompt asks whether a hypothesis is ambiguous. Vars: hypothesis, context.
var ClarifyPrompt = NewPrompt("clarify", analystSystem, `
Assess whether the following hypothesis is precise enough to be validated with public evidence.

HYPOTHESIS: {{.hypothesis}}
{{if .context}}CONTEXT: {{.context}}{{end}}

A hypothesis is ambiguous when key terms, scope, timeframe or measurement are unclear.
If it is ambiguous, propose one clarifying question. If a clearer equivalent statement
exists that keeps the original intent, provide it as refined_hypothesis.

Respond with JSON:
{"is_ambiguous": true|false, "clarification_question": "string or null", "refined_hypothesis": "string or null"}
`)

// DecomposePrompt splits a hypothesis into atomic claims. Vars: hypothesis, context.
var DecomposePrompt = NewPrompt("decompose", analystSystem, `
Break the hypothesis below into 1 to 5 atomic claims that can each be verified independently.

HYPOTHESIS: {{.hypothesis}}
{{if .context}}CONTEXT: {{.context}}{{end}}

For every claim provide:
- id: "claim_1", "claim_2", ...
- text: the claim as a single declarative sentence
- evidence_needed: what evidence would support it
- refutation_would_be: what evidence would refute it
- search_queries_pro: 2-3 web search queries likely to find supporting evidence
- search_queries_contra: 2-3 web search queries likely to find refuting evidence

Respond with JSON:
{"claims": [{"id": "...", "text": "...", "evidence_needed": "...", "refutation_would_be": "...", "search_queries_pro": ["..."], "search_queries_contra": ["..."]}]}
`)

// EvaluatePrompt judges one evidence item against a claim.
// Vars: claim, url, title, reliability, excerpt, contextual.
var EvaluatePrompt = NewPrompt("evaluate", analystSystem, `
Evaluate whether this source supports or refutes the claim.

CLAIM: {{.claim}}

SOURCE: {{.url}}
TITLE: {{.title}}
RELIABILITY SCORE: {{score .reliability}}/100
{{if .contextual}}NOTE: this source was retrieved as background context.
{{end}}
CONTENT:
{{.excerpt}}

Decide:
1. Does the content support the claim (true) or refute or fail to support it (false)?
2. How confident are you in that judgment, from 0 to 100? Weigh the reliability score,
   how directly the content addresses the claim, and whether it cites primary sources.
3. Explain your judgment in one or two sentences.

Respond with JSON:
{"supports_claim": true|false, "confidence_score": 0-100, "explanation": "..."}
`)

// ResolvePrompt asks for a balanced statement on conflicting evidence. Vars: claim, evidence.
var ResolvePrompt = NewPrompt("resolve", analystSystem, `
The evidence for the claim below contains both supporting and refuting sources.

CLAIM: {{.claim}}

EVIDENCE:
{{range $i, $e := .evidence}}{{inc $i}}. [{{if $e.SupportsClaim}}SUPPORTS{{else}}REFUTES{{end}}] {{$e.URL}}
   Reliability: {{score $e.SourceReliabilityScore}}/100
   Content: {{truncate 300 $e.Content}}
{{end}}
Write a balanced resolution that acknowledges both sides, explains which position is stronger
and why (consider reliability scores, definitions, timeframes and scope), and notes caveats.
Use at most four sentences.

Respond with JSON:
{"resolution": "..."}
`)

// ConflictAnalysisPrompt asks for a structured conflict analysis. Vars: claim, evidence.
var ConflictAnalysisPrompt = NewPrompt("analyze_conflict", analystSystem, `
Analyze the conflicts in the evidence for the claim below.

CLAIM: {{.claim}}

EVIDENCE:
{{range $i, $e := .evidence}}{{inc $i}}. [{{if $e.SupportsClaim}}SUPPORTS{{else}}REFUTES{{end}}] {{$e.URL}}
   Reliability: {{score $e.SourceReliabilityScore}}/100
   Content: {{truncate 300 $e.Content}}
{{end}}
Respond with JSON:
{"has_conflicts": true|false, "conflict_description": "string or null", "resolution": "...", "winning_position": "support" | "refute" | null, "confidence_in_resolution": 0-100}
`)

// SynthesizePrompt turns findings into a final report. Vars: hypothesis, context, findings.
var SynthesizePrompt = NewPrompt("synthesize", analystSystem, `
Write the final validation report for the hypothesis below from the research findings.

HYPOTHESIS: {{.hypothesis}}
{{if .context}}CONTEXT: {{.context}}{{end}}

FINDINGS:
{{range $i, $f := .findings}}{{inc $i}}. {{$f.Claim.Text}}
   Verdict: {{$f.Verdict}} (confidence {{score $f.ConfidenceScore}}/100, {{len $f.Evidence}} sources)
   Summary: {{$f.Summary}}
{{end}}
Choose an overall verdict: VALID, PARTIALLY_VALID, INCONCLUSIVE or REFUTED.
Give an overall confidence from 0 to 100 consistent with the findings, a 3-5 sentence
executive summary, and the information that is still missing to reach a firmer conclusion.

Respond with JSON:
{"verdict": "...", "confidence_score": 0-100, "executive_summary": "...", "missing_information": ["..."]}
`)
