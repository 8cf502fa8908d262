package pipeline

import "github.com/ppiankov/veritas/internal/model"

// Decision is the outcome of the termination check
type Decision int

const (
	Stop Decision = iota
	Continue
)

func (d Decision) String() string {
	if d == Continue {
		return "continue"
	}
	return "stop"
}

// Controller decides after each synthesis whether to research again
type Controller struct {
	Threshold     float64
	MaxIterations int
}

// NewController returns a controller from the research config
func NewController(cfg model.ResearchConfig) Controller {
	return Controller{Threshold: cfg.ConfidenceThreshold, MaxIterations: cfg.MaxIterations}
}

// Decide continues iff the report is below the threshold and the iteration cap is not reached
func (c Controller) Decide(report *model.Report, iterations int) (Decision, error) {
	if report == nil {
		return Stop, &EngineError{Stage: StageSynthesize, Msg: "termination check reached without a report"}
	}
	if report.ConfidenceScore < c.Threshold && iterations < c.MaxIterations {
		return Continue, nil
	}
	return Stop, nil
}

// Next maps a decision to the stage that follows synthesis
func (d Decision) Next() Stage {
	if d == Continue {
		return StageResearch
	}
	return StageTerminal
}
