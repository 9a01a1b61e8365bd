// pkg/pipeline/runner.go
package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Job names one dataset to push through the pipeline
type Job struct {
	Name       string
	InputPath  string
	OutputPath string
}

// Runner executes independent pipeline runs concurrently over a shared
// orchestrator. Runs share nothing but the artifact store, which
// namespaces every write by run ID.
type Runner struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
	concurrency  int
}

// NewRunner creates a runner with the given worker count
func NewRunner(o *Orchestrator, concurrency int, logger *zap.Logger) (*Runner, error) {
	if o == nil {
		return nil, errors.New("orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{orchestrator: o, logger: logger, concurrency: concurrency}, nil
}

// RunAll processes every job and returns results in job order. A failed
// run never stops the others.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []*RunResult {
	results := make([]*RunResult, len(jobs))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			logger := r.logger.With(zap.Int("workerID", workerID))
			for idx := range jobCh {
				job := jobs[idx]
				logger.Info("Worker picked up job",
					zap.String("job", job.Name),
					zap.String("input", job.InputPath))
				results[idx] = r.orchestrator.Run(ctx, job.InputPath, job.OutputPath)
			}
		}(w)
	}

	for idx := range jobs {
		select {
		case jobCh <- idx:
		case <-ctx.Done():
			// Unsubmitted jobs get a canceled result
			results[idx] = &RunResult{
				Status: StatusFailure,
				Err:    ctx.Err(),
				Error:  ctx.Err().Error(),
			}
		}
	}
	close(jobCh)
	wg.Wait()

	succeeded, failed := 0, 0
	for _, res := range results {
		if res != nil && res.Status != StatusFailure {
			succeeded++
		} else {
			failed++
		}
	}
	r.logger.Info("All jobs completed",
		zap.Int("jobs", len(jobs)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
	return results
}
