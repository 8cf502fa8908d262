package pipeline

import (
	"fmt"

	"github.com/ppiankov/veritas/internal/analyst"
	"github.com/ppiankov/veritas/internal/model"
)

// Stage is a state of the validation state machine
type Stage int

const (
	StageClarify Stage = iota
	StageDecompose
	StageResearch
	StageSynthesize
	StageTerminal
)

func (s Stage) String() string {
	switch s {
	case StageClarify:
		return "clarify"
	case StageDecompose:
		return "decompose"
	case StageResearch:
		return "research"
	case StageSynthesize:
		return "synthesize"
	case StageTerminal:
		return "terminal"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// State is handed from stage to stage. Each stage returns a new State;
// findings and reports are never shared between iterations.
type State struct {
	Hypothesis    model.Hypothesis
	Clarification analyst.Clarification
	Claims        []model.Claim
	Findings      []model.Finding
	Report        *model.Report
	History       []model.Report
	Iterations    int
}

// NewState is the initial state for h
func NewState(h model.Hypothesis) State {
	return State{Hypothesis: h}
}

// EngineError reports a broken engine invariant. It is the only error a run returns.
type EngineError struct {
	Stage Stage
	Msg   string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine invariant violated in %s: %s", e.Stage, e.Msg)
}
