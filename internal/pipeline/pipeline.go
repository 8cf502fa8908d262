// Package pipeline drives a hypothesis through clarification, decomposition,
// research and synthesis until the report is confident enough or the iteration
// budget is spent.
package pipeline

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/veritas/internal/analyst"
	"github.com/ppiankov/veritas/internal/critic"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/research"
	"github.com/ppiankov/veritas/internal/score"
	"go.uber.org/zap"
)

// HistoryRecorder persists runs and their per-iteration reports
type HistoryRecorder interface {
	StartRun(ctx context.Context, runID string, h model.Hypothesis, startedAt time.Time) error
	SaveReport(ctx context.Context, runID string, iteration int, report model.Report) error
	FinishRun(ctx context.Context, runID string, final model.Report, iterations int, interrupted bool) error
}

// Deps are the collaborators of an engine
type Deps struct {
	Oracle  llm.Oracle
	Agents  []research.ClaimProcessor
	History HistoryRecorder // optional
	Logger  *zap.Logger
}

// Engine validates hypotheses
type Engine struct {
	clarifier   *analyst.Clarifier
	decomposer  *analyst.Decomposer
	researcher  *Researcher
	synthesizer *analyst.Synthesizer
	controller  Controller
	history     HistoryRecorder
	runTimeout  time.Duration
	logger      *zap.Logger
	newRunID    func() string
}

// NewEngine wires an engine from the research configuration
func NewEngine(cfg model.ResearchConfig, deps Deps) *Engine {
	logger := logging.OrNop(deps.Logger)
	return &Engine{
		clarifier:  analyst.NewClarifier(deps.Oracle, logger),
		decomposer: analyst.NewDecomposer(deps.Oracle, logger),
		researcher: NewResearcher(
			research.NewCollector(logger, deps.Agents...),
			critic.NewEvaluator(deps.Oracle, cfg.EvaluationExcerpt, cfg.EvaluationWorkers, logger),
			critic.NewConflictResolver(deps.Oracle, logger),
			cfg, logger),
		synthesizer: analyst.NewSynthesizer(deps.Oracle, logger),
		controller:  NewController(cfg),
		history:     deps.History,
		runTimeout:  cfg.RunTimeout,
		logger:      logger.Named("engine"),
		newRunID:    uuid.NewString,
	}
}

// Result is the outcome of a run
type Result struct {
	RunID         string
	Hypothesis    model.Hypothesis // As researched, after any refinement
	Clarification analyst.Clarification
	Claims        []model.Claim
	Report        model.Report   // Latest report
	History       []model.Report // One report per iteration, oldest first
	Iterations    int
	Interrupted   bool // The run ended early because its context was done
	Duration      time.Duration
}

// Run validates h. It always produces a report; the only error is an *EngineError.
func (e *Engine) Run(ctx context.Context, h model.Hypothesis) (*Result, error) {
	start := time.Now()
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	runID := e.newRunID()
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("validating hypothesis", zap.String("hypothesis", h.Text))
	e.persist(ctx, logger, func(ctx context.Context) error {
		return e.history.StartRun(ctx, runID, h, start)
	})

	st := NewState(h)
	stage := StageClarify
	var interrupted error
	for stage != StageTerminal {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}

		next, out, err := e.step(ctx, logger, runID, stage, st)
		st = out
		if err != nil {
			var engineErr *EngineError
			if errors.As(err, &engineErr) {
				return nil, err
			}
			interrupted = err
			break
		}
		stage = next
	}

	res := &Result{
		RunID:         runID,
		Hypothesis:    st.Hypothesis,
		Clarification: st.Clarification,
		Claims:        st.Claims,
		History:       st.History,
		Iterations:    st.Iterations,
	}
	switch {
	case interrupted != nil && st.Report != nil:
		logger.Warn("run interrupted, returning latest report", zap.Error(interrupted))
		res.Report = st.Report.Clone()
		res.Interrupted = true
	case interrupted != nil:
		logger.Warn("run interrupted before any report", zap.Error(interrupted))
		res.Report = analyst.FallbackReport(st.Hypothesis, st.Findings, interrupted)
		res.Interrupted = true
	default:
		res.Report = st.Report.Clone()
	}
	res.Duration = time.Since(start)

	metrics.RunsCompleted.WithLabelValues(string(res.Report.Verdict)).Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())
	e.persist(ctx, logger, func(ctx context.Context) error {
		return e.history.FinishRun(ctx, runID, res.Report, res.Iterations, res.Interrupted)
	})

	logger.Info("validation finished",
		zap.String("verdict", string(res.Report.Verdict)),
		zap.Float64("confidence", res.Report.ConfidenceScore),
		zap.Int("iterations", res.Iterations),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("duration", res.Duration))

	return res, nil
}

// Validate runs h and returns only the final report
func (e *Engine) Validate(ctx context.Context, h model.Hypothesis) (*model.Report, error) {
	res, err := e.Run(ctx, h)
	if err != nil {
		return nil, err
	}
	return &res.Report, nil
}

// step runs one stage and returns the next stage with the new state
func (e *Engine) step(ctx context.Context, logger *zap.Logger, runID string, stage Stage, st State) (Stage, State, error) {
	switch stage {
	case StageClarify:
		c := e.clarifier.Clarify(ctx, st.Hypothesis)
		st.Clarification = c
		if c.IsAmbiguous {
			logger.Info("hypothesis is ambiguous, continuing with it",
				zap.String("question", c.Question))
		}
		if c.Refined != "" && c.Refined != st.Hypothesis.Text {
			logger.Info("hypothesis refined", zap.String("refined", c.Refined))
			st.Hypothesis = st.Hypothesis.Refine(c.Refined)
		}
		return StageDecompose, st, nil

	case StageDecompose:
		claims := e.decomposer.Decompose(ctx, st.Hypothesis)
		if len(claims) == 0 {
			logger.Warn("decomposition produced no claims, researching the hypothesis as a single claim")
			claims = []model.Claim{analyst.FallbackClaim(st.Hypothesis)}
		}
		st.Claims = claims
		logger.Info("hypothesis decomposed", zap.Int("claims", len(claims)))
		return StageResearch, st, nil

	case StageResearch:
		findings, err := e.researcher.Research(ctx, st.Claims)
		st.Findings = findings
		if err != nil {
			return StageResearch, st, err
		}
		return StageSynthesize, st, nil

	case StageSynthesize:
		report := e.synthesizer.Synthesize(ctx, st.Hypothesis, st.Findings)
		if err := ctx.Err(); err != nil && report.Verdict == model.VerdictError {
			return StageSynthesize, st, err
		}

		st.Iterations++
		metrics.Iterations.Inc()
		st.Report = &report
		st.History = append(slices.Clone(st.History), report.Clone())
		e.persist(ctx, logger, func(ctx context.Context) error {
			return e.history.SaveReport(ctx, runID, st.Iterations, report)
		})

		decision, err := e.controller.Decide(st.Report, st.Iterations)
		if err != nil {
			return StageTerminal, st, err
		}

		summary := score.Summarize(st.Findings)
		logger.Info("iteration complete",
			zap.Int("iteration", st.Iterations),
			zap.String("verdict", string(report.Verdict)),
			zap.Float64("confidence", report.ConfidenceScore),
			zap.Float64("threshold", e.controller.Threshold),
			zap.Float64("mean_claim_confidence", summary.Overall),
			zap.Strings("weak_claims", summary.WeakClaims),
			zap.Stringer("decision", decision))
		return decision.Next(), st, nil
	}

	return StageTerminal, st, &EngineError{Stage: stage, Msg: "unknown stage"}
}

// persist runs a history write that survives cancellation of the run; failures are logged
func (e *Engine) persist(ctx context.Context, logger *zap.Logger, write func(context.Context) error) {
	if e.history == nil {
		return
	}
	if err := write(context.WithoutCancel(ctx)); err != nil {
		metrics.PersistenceFailures.WithLabelValues("history").Inc()
		logger.Warn("history write failed", zap.Error(err))
	}
}
