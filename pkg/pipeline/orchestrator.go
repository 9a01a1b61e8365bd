// pkg/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/artifact"
	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/dataio"
	"github.com/refinery-project/refinery/pkg/dataset"
	"github.com/refinery-project/refinery/pkg/insight"
	"github.com/refinery-project/refinery/pkg/inspector"
	"github.com/refinery-project/refinery/pkg/refiner"
	"github.com/refinery-project/refinery/pkg/stage"
)

// The refiner is the only stage whose failure aborts the run; inspector
// and insight failures downgrade the run to partial_failure instead.
const fatalStage = "refiner"

// Loader reads a dataset from a path
type Loader interface {
	Load(ctx context.Context, path string) (*dataset.Dataset, error)
}

// Saver writes a dataset to a path
type Saver interface {
	Save(ctx context.Context, ds *dataset.Dataset, path string) error
}

// Orchestrator owns a run: it loads the dataset, drives the stages in
// fixed order, applies the failure policy and persists outputs
type Orchestrator struct {
	cfg    *config.Config
	store  artifact.Store
	logger *zap.Logger
	loader Loader
	saver  Saver
	stages []stage.Stage
}

// Option customizes orchestrator construction
type Option func(*Orchestrator)

// WithStages replaces the default stage set
func WithStages(stages []stage.Stage) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

// WithLoader replaces the default file loader
func WithLoader(l Loader) Option {
	return func(o *Orchestrator) { o.loader = l }
}

// WithSaver replaces the default file saver
func WithSaver(s Saver) Option {
	return func(o *Orchestrator) { o.saver = s }
}

// New validates the configuration and assembles the orchestrator. A
// config.ValidationError here means no run took place at all.
func New(cfg *config.Config, store artifact.Store, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if store == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fileIO, err := dataio.NewFileIO(logger)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		loader: fileIO,
		saver:  fileIO,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.stages == nil {
		insp, err := inspector.New(cfg.Inspector, store, logger)
		if err != nil {
			return nil, err
		}
		ref, err := refiner.New(cfg.Refiner, store, logger)
		if err != nil {
			return nil, err
		}
		ins, err := insight.New(cfg.Insight, store, logger)
		if err != nil {
			return nil, err
		}
		o.stages = []stage.Stage{insp, ref, ins}
	}
	return o, nil
}

// Run executes the pipeline over the dataset at inputPath. When outputPath
// is non-empty and the run did not fail, the refined dataset is written
// there. The returned result is always non-nil.
func (o *Orchestrator) Run(ctx context.Context, inputPath, outputPath string) *RunResult {
	runID := uuid.New().String()
	metrics := NewMetrics(o.logger)
	result := &RunResult{
		RunID:       runID,
		DatasetName: o.cfg.DatasetName,
		Status:      StatusSuccess,
		InputPath:   inputPath,
		StartTime:   metrics.StartTime,
	}

	logger := o.logger.With(zap.String("runID", runID))
	logger.Info("Starting pipeline run",
		zap.String("dataset", o.cfg.DatasetName),
		zap.String("input", inputPath))

	ds, err := o.loader.Load(ctx, inputPath)
	if err != nil {
		logger.Error("Failed to load dataset", zap.Error(err))
		return o.finish(ctx, runID, result, metrics, nil, err)
	}

	h, err := dataset.NewHandle(o.cfg.DatasetName, ds)
	if err != nil {
		return o.finish(ctx, runID, result, metrics, nil, err)
	}
	metrics.RecordLoad(ds.Rows(), ds.Cols())

	for _, s := range o.stages {
		if !s.Enabled() {
			logger.Info("Skipping disabled stage", zap.String("stage", s.Name()))
			continue
		}
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, runID, result, metrics, h, err)
		}

		outcome := s.Run(ctx, h, runID)
		metrics.RecordStage(outcome)
		result.Stages = append(result.Stages, outcome)

		if outcome.Succeeded {
			continue
		}
		if s.Name() == fatalStage {
			logger.Error("Fatal stage failed, aborting run",
				zap.String("stage", s.Name()),
				zap.Error(outcome.Err))
			result.Status = StatusFailure
			return o.finish(ctx, runID, result, metrics, h, outcome.Err)
		}
		logger.Warn("Non-fatal stage failed, continuing",
			zap.String("stage", s.Name()),
			zap.Error(outcome.Err))
		result.Status = StatusPartialFailure
	}

	if outputPath != "" {
		if err := o.saver.Save(ctx, h.Data(), outputPath); err != nil {
			logger.Error("Failed to save refined dataset", zap.Error(err))
			result.Status = StatusFailure
			return o.finish(ctx, runID, result, metrics, h, err)
		}
		result.OutputPath = outputPath
	}

	return o.finish(ctx, runID, result, metrics, h, nil)
}

// finish closes out a run: metrics are completed, run artifacts persisted
// and the result populated. Artifact persistence failures are logged but
// never change the run status.
func (o *Orchestrator) finish(ctx context.Context, runID string, result *RunResult, metrics *Metrics, h *dataset.Handle, fatal error) *RunResult {
	rowsOut, colsOut, transformations := 0, 0, 0
	if h != nil {
		rowsOut = h.Data().Rows()
		colsOut = h.Data().Cols()
		transformations = h.LogLen()
		result.Records = h.Log()
		result.Dataset = h.Data()
	}
	metrics.Complete(rowsOut, colsOut, transformations)
	result.EndTime = metrics.EndTime
	result.Metrics = metrics

	if fatal != nil {
		result.Status = StatusFailure
		result.Err = fatal
		result.Error = fatal.Error()
	}

	o.persistRunArtifacts(ctx, runID, result, metrics, h)

	o.logger.Info("Pipeline run finished",
		zap.String("runID", runID),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration()),
		zap.Int("transformations", transformations))
	return result
}

// persistRunArtifacts writes the transformation log and metrics for the
// run, and mirrors the log into the store's log sink when it has one
func (o *Orchestrator) persistRunArtifacts(ctx context.Context, runID string, result *RunResult, metrics *Metrics, h *dataset.Handle) {
	if h != nil && h.LogLen() > 0 {
		payload, err := json.MarshalIndent(h.Log(), "", "  ")
		if err == nil {
			err = o.store.Put(ctx, runID, "pipeline/transformation_log.json", payload)
		}
		if err != nil {
			o.logger.Warn("Failed to persist transformation log", zap.Error(err))
		}
		if sink, ok := o.store.(artifact.LogSink); ok {
			if err := sink.AppendLog(ctx, runID, h.Log()); err != nil {
				o.logger.Warn("Failed to append transformation log to sink", zap.Error(err))
			}
		}
	}

	payload, err := metrics.ToJSON()
	if err == nil {
		err = o.store.Put(ctx, runID, "pipeline/metrics.json", payload)
	}
	if err != nil {
		o.logger.Warn("Failed to persist run metrics", zap.Error(err))
	}

	summary, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		err = o.store.Put(ctx, runID, "pipeline/result.json", summary)
	}
	if err != nil {
		o.logger.Warn("Failed to persist run result", zap.Error(err))
	}
}
