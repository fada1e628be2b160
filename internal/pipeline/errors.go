package pipeline

import (
	"errors"
	"fmt"
)

// Failure classes for a run. Feed-level classes live in the feed package;
// everything here is store-side. All of them are fatal to the run.
var (
	// ErrStoreWrite wraps any failed upsert.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreRead wraps any failed post-upsert fetch-back.
	ErrStoreRead = errors.New("store read failed")
	// ErrDimensionResolution marks a candidate that cannot be matched to a
	// stored dimension row after a successful upsert and fetch-back.
	ErrDimensionResolution = errors.New("dimension resolution incomplete")
	// ErrFactWrite wraps a failed fact insert.
	ErrFactWrite = errors.New("fact write failed")
)

// stageError ties a failure to the stage it happened in. The stage label
// feeds logs and metrics; the wrapped error keeps the failure class.
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

func failAt(stage Stage, err error) error {
	return &stageError{stage: stage, err: err}
}

// FailureStage extracts the stage a run error occurred in, or StageFailed if
// the error carries no stage.
func FailureStage(err error) Stage {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return StageFailed
}
