package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/llm/llmtest"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/research"
	"github.com/ppiankov/veritas/internal/search"
	"github.com/ppiankov/veritas/internal/worker"
)

var mars = model.Hypothesis{Text: "Mars has two moons"}

func marsSources() *search.Static {
	return search.NewStatic(
		search.Result{URL: "https://nssdc.gsfc.nasa.gov/planetary/factsheet/marsfact.html", Title: "Mars Fact Sheet", Text: "Mars has two natural satellites, Phobos and Deimos."},
		search.Result{URL: "https://solarsystem.nasa.gov/moons/mars-moons/", Title: "Mars Moons", Text: "Mars has two small moons, Phobos and Deimos."},
		search.Result{URL: "https://www.astro.cornell.edu/mars", Title: "Moons of Mars", Text: "Phobos and Deimos orbit Mars."},
	)
}

func researchConfig() model.ResearchConfig {
	cfg := model.DefaultConfig().Research
	cfg.RunTimeout = 0
	return cfg
}

func agents(src search.Source) []research.ClaimProcessor {
	cfg := model.DefaultConfig()
	return research.NewAgents(research.Deps{Source: src}, cfg.Research, cfg.Scoring, search.Filters{})
}

const marsClaims = `{"claims": [
	{"id": "claim_1", "text": "Mars has a moon named Phobos", "search_queries_pro": ["phobos moon"], "search_queries_contra": ["phobos not a moon"]},
	{"id": "claim_2", "text": "Mars has a moon named Deimos", "search_queries_pro": ["deimos moon"], "search_queries_contra": ["deimos not a moon"]}
]}`

func supportive(vars map[string]any) llmtest.Response {
	return llmtest.Raw(`{"supports_claim": true, "confidence_score": 90, "explanation": "Official source confirms the moon."}`)
}

func synthesis(confidence float64) llmtest.Response {
	verdict := "VALID"
	if confidence < 60 {
		verdict = "INCONCLUSIVE"
	}
	return llmtest.Raw(fmt.Sprintf(`{"verdict": %q, "confidence_score": %v, "executive_summary": "Summary at %v.", "missing_information": []}`,
		verdict, confidence, confidence))
}

func TestEngine_MarsHasTwoMoons(t *testing.T) {
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(92))

	engine := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())})
	res, err := engine.Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	report := res.Report
	if report.Verdict != model.VerdictValid || report.ConfidenceScore < 80 {
		t.Errorf("report = %s (%v), want VALID with confidence >= 80", report.Verdict, report.ConfidenceScore)
	}
	if res.Iterations != 1 || res.Interrupted {
		t.Errorf("iterations = %d, interrupted = %v", res.Iterations, res.Interrupted)
	}

	var urls []string
	for _, s := range report.Sources {
		urls = append(urls, s.URL)
	}
	want := []string{
		"https://nssdc.gsfc.nasa.gov/planetary/factsheet/marsfact.html",
		"https://solarsystem.nasa.gov/moons/mars-moons/",
		"https://www.astro.cornell.edu/mars",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}

	if len(report.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(report.Findings))
	}
	for i, f := range report.Findings {
		if f.Claim.ID != fmt.Sprintf("claim_%d", i+1) {
			t.Errorf("finding %d is for %s, want claims in order", i, f.Claim.ID)
		}
		if f.Verdict != model.VerdictValid || f.ConfidenceScore != 90 {
			t.Errorf("finding %s = %s (%v)", f.Claim.ID, f.Verdict, f.ConfidenceScore)
		}
		// pro and contra: 3 results each; context: 2
		if len(f.Evidence) != 8 {
			t.Errorf("finding %s has %d evidence items, want 8", f.Claim.ID, len(f.Evidence))
		}
	}
}

func TestEngine_IteratesUntilConfident(t *testing.T) {
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(40), synthesis(55), synthesis(90))

	res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations)
	}
	var confidence []float64
	for _, r := range res.History {
		confidence = append(confidence, r.ConfidenceScore)
	}
	if diff := cmp.Diff([]float64{40, 55, 90}, confidence); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if res.Report.ConfidenceScore != 90 {
		t.Errorf("final confidence = %v, want 90", res.Report.ConfidenceScore)
	}
	if n := len(oracle.Calls(llm.DecomposePrompt.Name)); n != 1 {
		t.Errorf("decomposed %d times, want once", n)
	}
}

func TestEngine_StopsAtIterationCap(t *testing.T) {
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(40))

	res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Iterations != 3 || len(res.History) != 3 {
		t.Errorf("iterations = %d, history = %d, want 3", res.Iterations, len(res.History))
	}
	if res.Report.ConfidenceScore != 40 {
		t.Errorf("final confidence = %v, want the latest report", res.Report.ConfidenceScore)
	}
}

func TestEngine_OracleDown(t *testing.T) {
	oracle := llmtest.New() // every call fails
	cfg := researchConfig()
	cfg.MaxIterations = 2

	res, err := NewEngine(cfg, Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Claims) != 1 || res.Claims[0].Text != mars.Text {
		t.Errorf("claims = %+v, want the fallback claim", res.Claims)
	}
	if res.Report.Verdict != model.VerdictError || res.Report.ConfidenceScore != 0 {
		t.Errorf("report = %s (%v), want ERROR (0)", res.Report.Verdict, res.Report.ConfidenceScore)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}

	// Collected evidence survives without the evaluator
	f := res.Report.Findings[0]
	if len(f.Evidence) == 0 {
		t.Fatal("fallback report has no evidence")
	}
	if !strings.HasPrefix(f.Summary, "Conflict detected") && !strings.HasPrefix(f.Summary, "Significant conflict") {
		t.Errorf("summary = %q, want the reliability rule", f.Summary)
	}
}

func TestEngine_RefinesHypothesis(t *testing.T) {
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": true, "clarification_question": "Natural moons?", "refined_hypothesis": "Mars has exactly two natural moons"}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(`{"claims": []}`)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(85))

	res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Hypothesis.Text != "Mars has exactly two natural moons" {
		t.Errorf("hypothesis = %q, want the refined text", res.Hypothesis.Text)
	}
	if !res.Clarification.IsAmbiguous {
		t.Error("ambiguity not recorded")
	}
	if res.Claims[0].Text != "Mars has exactly two natural moons" {
		t.Errorf("fallback claim = %q, want the refined hypothesis", res.Claims[0].Text)
	}
	if res.Report.Hypothesis != "Mars has exactly two natural moons" {
		t.Errorf("report hypothesis = %q", res.Report.Hypothesis)
	}
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewEngine(researchConfig(), Deps{Oracle: llmtest.New(), Agents: agents(marsSources())}).Run(ctx, mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Interrupted || res.Report.Verdict != model.VerdictError || res.Iterations != 0 {
		t.Errorf("result = %+v, want interrupted ERROR report", res)
	}
	if !strings.HasPrefix(res.Report.ExecutiveSummary, "Error generating report: ") {
		t.Errorf("summary = %q", res.Report.ExecutiveSummary)
	}
}

func TestEngine_CancelledMidRunKeepsLatestReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syntheses atomic.Int32
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		OnFunc(llm.SynthesizePrompt.Name, func(map[string]any) llmtest.Response {
			if syntheses.Add(1) == 2 {
				cancel()
			}
			return synthesis(40)
		})

	res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(ctx, mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Interrupted {
		t.Error("run not marked interrupted")
	}
	if res.Iterations != 1 || res.Report.ConfidenceScore != 40 || res.Report.Verdict != model.VerdictInconclusive {
		t.Errorf("result = %d iterations, report %s (%v), want the first iteration's report",
			res.Iterations, res.Report.Verdict, res.Report.ConfidenceScore)
	}
}

// cancelAfterSynthesis cancels the run once a synthesis call has returned
type cancelAfterSynthesis struct {
	llm.Oracle
	cancel context.CancelFunc
}

func (o cancelAfterSynthesis) Complete(ctx context.Context, prompt llm.Prompt, vars map[string]any, out any) error {
	err := o.Oracle.Complete(ctx, prompt, vars, out)
	if prompt.Name == llm.SynthesizePrompt.Name {
		o.cancel()
	}
	return err
}

func TestEngine_CancelledAfterSynthesisKeepsReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scripted := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(40))
	oracle := cancelAfterSynthesis{Oracle: scripted, cancel: cancel}

	res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(ctx, mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Interrupted {
		t.Error("run not marked interrupted")
	}
	if res.Iterations != 1 || res.Report.Verdict != model.VerdictInconclusive || res.Report.ConfidenceScore != 40 {
		t.Errorf("result = %d iterations, report %s (%v), want the synthesized report",
			res.Iterations, res.Report.Verdict, res.Report.ConfidenceScore)
	}
	if len(res.History) != 1 {
		t.Errorf("history = %d reports, want 1", len(res.History))
	}
}

func TestEngine_RunTimeout(t *testing.T) {
	cfg := researchConfig()
	cfg.RunTimeout = 20 * time.Millisecond

	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, func(vars map[string]any) llmtest.Response {
			time.Sleep(50 * time.Millisecond)
			return supportive(vars)
		}).
		On(llm.SynthesizePrompt.Name, synthesis(90))

	res, err := NewEngine(cfg, Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Interrupted || res.Report.Verdict != model.VerdictError {
		t.Errorf("result = interrupted %v, verdict %s, want interrupted ERROR report", res.Interrupted, res.Report.Verdict)
	}
}

func TestEngine_DetailedConflicts(t *testing.T) {
	cfg := researchConfig()
	cfg.DetailedConflicts = true

	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(90))

	res, err := NewEngine(cfg, Deps{Oracle: oracle, Agents: agents(marsSources())}).Run(context.Background(), mars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f := res.Report.Findings[0]
	if f.Conflict == nil {
		t.Fatal("finding has no conflict analysis")
	}
	if f.Conflict.HasConflicts || f.Conflict.WinningPosition != "support" || f.Conflict.ConfidenceInResolution != 80 {
		t.Errorf("conflict = %+v", f.Conflict)
	}
	if f.Summary != "All evidence appears to support the claim." {
		t.Errorf("summary = %q", f.Summary)
	}
}

type historyCall struct {
	Op          string
	Iteration   int
	Confidence  float64
	Interrupted bool
}

type fakeHistory struct {
	mu    sync.Mutex
	calls []historyCall
	fail  bool
}

func (f *fakeHistory) record(c historyCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.fail {
		return errors.New("database is locked")
	}
	return nil
}

func (f *fakeHistory) StartRun(_ context.Context, _ string, _ model.Hypothesis, _ time.Time) error {
	return f.record(historyCall{Op: "start"})
}

func (f *fakeHistory) SaveReport(_ context.Context, _ string, iteration int, r model.Report) error {
	return f.record(historyCall{Op: "save", Iteration: iteration, Confidence: r.ConfidenceScore})
}

func (f *fakeHistory) FinishRun(_ context.Context, _ string, r model.Report, iterations int, interrupted bool) error {
	return f.record(historyCall{Op: "finish", Iteration: iterations, Confidence: r.ConfidenceScore, Interrupted: interrupted})
}

func TestEngine_RecordsHistory(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("fail=%v", fail), func(t *testing.T) {
			oracle := llmtest.New().
				On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
				On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
				OnFunc(llm.EvaluatePrompt.Name, supportive).
				On(llm.SynthesizePrompt.Name, synthesis(50), synthesis(70))

			history := &fakeHistory{fail: fail}
			res, err := NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources()), History: history}).
				Run(context.Background(), mars)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Report.ConfidenceScore != 70 {
				t.Errorf("final confidence = %v", res.Report.ConfidenceScore)
			}

			want := []historyCall{
				{Op: "start"},
				{Op: "save", Iteration: 1, Confidence: 50},
				{Op: "save", Iteration: 2, Confidence: 70},
				{Op: "finish", Iteration: 2, Confidence: 70},
			}
			if diff := cmp.Diff(want, history.calls); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_SatisfiesBatchRunner(t *testing.T) {
	oracle := llmtest.New().
		On(llm.ClarifyPrompt.Name, llmtest.Raw(`{"is_ambiguous": false}`)).
		On(llm.DecomposePrompt.Name, llmtest.Raw(marsClaims)).
		OnFunc(llm.EvaluatePrompt.Name, supportive).
		On(llm.SynthesizePrompt.Name, synthesis(90))

	var runner worker.Runner = NewEngine(researchConfig(), Deps{Oracle: oracle, Agents: agents(marsSources())})
	results := worker.NewBatchProcessor(runner, 2).Process(context.Background(), []model.Hypothesis{mars, {Text: "Phobos orbits Mars"}})

	for _, r := range results {
		if r.Error != nil || r.Report == nil || r.Report.Verdict != model.VerdictValid {
			t.Errorf("batch result %d = %+v", r.Index, r)
		}
	}
	if results[1].Report.Hypothesis != "Phobos orbits Mars" {
		t.Errorf("results out of order: %q", results[1].Report.Hypothesis)
	}
}
