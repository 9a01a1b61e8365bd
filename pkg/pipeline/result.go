// pkg/pipeline/result.go
package pipeline

import (
	"time"

	"github.com/refinery-project/refinery/pkg/dataset"
	"github.com/refinery-project/refinery/pkg/stage"
)

// Status classifies how a run finished
type Status string

const (
	// StatusSuccess means every executed stage succeeded
	StatusSuccess Status = "success"
	// StatusPartialFailure means a non-fatal stage failed but the run
	// completed and output was persisted
	StatusPartialFailure Status = "partial_failure"
	// StatusFailure means the run aborted; no output dataset was written
	StatusFailure Status = "failure"
)

// RunResult is the full account of one pipeline run
type RunResult struct {
	RunID       string                         `json:"run_id"`
	DatasetName string                         `json:"dataset_name"`
	Status      Status                         `json:"status"`
	Stages      []stage.Outcome                `json:"stages"`
	Records     []dataset.TransformationRecord `json:"transformations"`
	InputPath   string                         `json:"input_path"`
	OutputPath  string                         `json:"output_path,omitempty"`
	StartTime   time.Time                      `json:"start_time"`
	EndTime     time.Time                      `json:"end_time"`
	Error       string                         `json:"error,omitempty"`

	// Dataset is the in-memory result, nil when the run failed before or
	// during load
	Dataset *dataset.Dataset `json:"-"`
	// Metrics is the run's metrics recorder
	Metrics *Metrics `json:"-"`
	// Err carries the fatal error for callers that need to inspect it
	Err error `json:"-"`
}

// Duration returns the wall-clock time of the run
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// StageOutcome returns the recorded outcome for a stage name
func (r *RunResult) StageOutcome(name string) (stage.Outcome, bool) {
	for _, o := range r.Stages {
		if o.Stage == name {
			return o, true
		}
	}
	return stage.Outcome{}, false
}
