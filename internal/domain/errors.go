package domain

import "fmt"

// StageError signals that a dependency the pipeline needs failed. Payload
// describes the failing operation so node boundaries can decide between a
// fallback value and aborting the run.
type StageError struct {
	Op      string
	Payload map[string]string
	Err     error
}

// NewStageError wraps err with the failing operation and its payload.
func NewStageError(op string, err error, payload map[string]string) *StageError {
	return &StageError{Op: op, Payload: payload, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %s failed", e.Op)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
