// pkg/insight/insight.go
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/artifact"
	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/dataset"
	"github.com/refinery-project/refinery/pkg/stage"
)

// Engine is the insight stage. It derives summaries, histograms and
// correlations from the refined dataset and stores them as artifacts; it
// never mutates the dataset.
type Engine struct {
	cfg    config.InsightConfig
	store  artifact.Store
	logger *zap.Logger
}

// New creates the insight engine
func New(cfg config.InsightConfig, store artifact.Store, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Engine{cfg: cfg, store: store, logger: logger}, nil
}

// Name returns the stage name
func (e *Engine) Name() string { return "insight" }

// Enabled reports whether the stage is switched on in config
func (e *Engine) Enabled() bool { return e.cfg.Enabled }

// Run derives the enabled insight artifacts
func (e *Engine) Run(ctx context.Context, h *dataset.Handle, runID string) stage.Outcome {
	start := time.Now()
	ds := h.Data()

	e.logger.Info("Running insight stage",
		zap.String("dataset", h.Name()),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", ds.Cols()))

	if e.cfg.Summary {
		if err := e.putJSON(ctx, runID, "insight/summary.json", BuildSummary(ds)); err != nil {
			e.logger.Error("Failed to write summary artifact", zap.Error(err))
			return stage.Failure(e.Name(), time.Since(start), err)
		}
	}

	if e.cfg.Histograms {
		if err := ctx.Err(); err != nil {
			return stage.Failure(e.Name(), time.Since(start), err)
		}
		if err := e.putJSON(ctx, runID, "insight/histograms.json", BuildHistograms(ds, e.cfg.HistogramBins)); err != nil {
			e.logger.Error("Failed to write histograms artifact", zap.Error(err))
			return stage.Failure(e.Name(), time.Since(start), err)
		}
	}

	if e.cfg.Correlations {
		if err := ctx.Err(); err != nil {
			return stage.Failure(e.Name(), time.Since(start), err)
		}
		if err := e.putJSON(ctx, runID, "insight/correlations.json", BuildCorrelations(ds)); err != nil {
			e.logger.Error("Failed to write correlations artifact", zap.Error(err))
			return stage.Failure(e.Name(), time.Since(start), err)
		}
	}

	e.logger.Info("Insight stage completed", zap.String("dataset", h.Name()))
	return stage.Success(e.Name(), time.Since(start))
}

func (e *Engine) putJSON(ctx context.Context, runID, key string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return e.store.Put(ctx, runID, key, payload)
}
