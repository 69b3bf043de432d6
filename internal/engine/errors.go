package engine

import "fmt"

type Stage string

const (
	StageParse      Stage = "parse"
	StageBind       Stage = "bind"
	StageSynthesize Stage = "synthesize"
	StageTimeline   Stage = "timeline"
)

// StageError names the pipeline stage that stopped a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
