// pkg/stage/stage.go
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// Stage is one unit of pipeline work over a dataset handle. The three
// variants (inspector, refiner, insight) all satisfy this contract; only
// the refiner may mutate the dataset it is handed.
type Stage interface {
	// Name returns the stage name used for metrics and artifact namespacing
	Name() string
	// Enabled reports whether the stage should execute at all
	Enabled() bool
	// Run executes the stage against the handle within the given run
	Run(ctx context.Context, h *dataset.Handle, runID string) Outcome
}

// Outcome describes how a single stage execution finished
type Outcome struct {
	Stage        string        `json:"stage"`
	Succeeded    bool          `json:"succeeded"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
	RowDelta     int           `json:"row_delta"`
	ColumnDelta  int           `json:"column_delta"`
	ChecksPassed int           `json:"checks_passed"`
	ChecksFailed int           `json:"checks_failed"`

	// Err carries the underlying failure for callers that need to inspect it
	Err error `json:"-"`
}

// Success builds a successful outcome
func Success(name string, duration time.Duration) Outcome {
	return Outcome{Stage: name, Succeeded: true, Duration: duration}
}

// Failure builds a failed outcome wrapping the cause in an ExecutionError
func Failure(name string, duration time.Duration, err error) Outcome {
	execErr := &ExecutionError{Stage: name, Err: err}
	return Outcome{
		Stage:     name,
		Succeeded: false,
		Error:     execErr.Error(),
		Duration:  duration,
		Err:       execErr,
	}
}

// ExecutionError is the catch-all failure for an individual stage. It
// carries the offending stage name and the underlying cause.
type ExecutionError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause
func (e *ExecutionError) Unwrap() error { return e.Err }
