// pkg/inspector/inspector.go
package inspector

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

// Engine is the inspector stage. It profiles the dataset and evaluates
// expectations but never mutates the data; a failed expectation marks the
// check failed without failing the stage.
type Engine struct {
	cfg    config.InspectorConfig
	store  artifact.Store
	logger *zap.Logger
}

// New creates the inspector engine
func New(cfg config.InspectorConfig, store artifact.Store, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Engine{cfg: cfg, store: store, logger: logger}, nil
}

// Name returns the stage name
func (e *Engine) Name() string { return "inspector" }

// Enabled reports whether the stage is switched on in config
func (e *Engine) Enabled() bool { return e.cfg.Enabled }

// Run profiles the dataset and evaluates the configured expectations.
// When no expectations are configured a default suite applies: the dataset
// must have at least one row and no column may be entirely missing.
func (e *Engine) Run(ctx context.Context, h *dataset.Handle, runID string) stage.Outcome {
	start := time.Now()
	ds := h.Data()

	e.logger.Info("Running inspector stage",
		zap.String("dataset", h.Name()),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", ds.Cols()))

	if e.cfg.Profile {
		profile := BuildProfile(ds)
		if err := e.putJSON(ctx, runID, "inspector/profile.json", profile); err != nil {
			e.logger.Error("Failed to write profile artifact", zap.Error(err))
			return stage.Failure(e.Name(), time.Since(start), err)
		}
	}

	if err := ctx.Err(); err != nil {
		return stage.Failure(e.Name(), time.Since(start), err)
	}

	expectations := e.cfg.Expectations
	if len(expectations) == 0 {
		expectations = defaultExpectations(ds)
	}

	results := make([]ValidationResult, 0, len(expectations))
	passed, failed := 0, 0
	for _, exp := range expectations {
		res := Evaluate(ds, exp)
		if res.Passed {
			passed++
		} else {
			failed++
			e.logger.Warn("Expectation failed",
				zap.String("id", res.ID),
				zap.String("expected", res.Expected),
				zap.String("observed", res.Observed))
		}
		results = append(results, res)
	}

	report := validationReport{
		Dataset: h.Name(),
		Passed:  passed,
		Failed:  failed,
		Results: results,
	}
	if err := e.putJSON(ctx, runID, "inspector/validation.json", report); err != nil {
		e.logger.Error("Failed to write validation artifact", zap.Error(err))
		return stage.Failure(e.Name(), time.Since(start), err)
	}

	outcome := stage.Success(e.Name(), time.Since(start))
	outcome.ChecksPassed = passed
	outcome.ChecksFailed = failed

	e.logger.Info("Inspector stage completed",
		zap.Int("checksPassed", passed),
		zap.Int("checksFailed", failed))
	return outcome
}

// validationReport is the inspector's validation artifact payload
type validationReport struct {
	Dataset string             `json:"dataset"`
	Passed  int                `json:"passed"`
	Failed  int                `json:"failed"`
	Results []ValidationResult `json:"results"`
}

func (e *Engine) putJSON(ctx context.Context, runID, key string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return e.store.Put(ctx, runID, key, payload)
}

// defaultExpectations builds the fallback suite used when config names no
// expectations of its own
func defaultExpectations(ds *dataset.Dataset) []config.Expectation {
	min := 1.0
	exps := []config.Expectation{
		{ID: "default_row_count", Kind: "row_count_min", Min: &min},
	}
	for _, name := range ds.ColumnNames() {
		exps = append(exps, config.Expectation{
			ID:     "default_not_all_missing_" + name,
			Kind:   "not_all_missing",
			Column: name,
		})
	}
	return exps
}
