// pkg/refiner/refiner.go
package refiner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/artifact"
	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/dataset"
	"github.com/refinery-project/refinery/pkg/stage"
)

// NameCollisionError reports two distinct original column names that
// normalize to the same canonical name
type NameCollisionError struct {
	Canonical string
	Originals []string
}

// Error implements the error interface
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("column names %s collide on canonical form %q",
		strings.Join(e.Originals, ", "), e.Canonical)
}

// TypeMismatchError reports an operation applied to a column whose kind
// cannot support it
type TypeMismatchError struct {
	Column    string
	Operation string
	Kind      dataset.Kind
}

// Error implements the error interface
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("operation %s cannot apply to %s column %q", e.Operation, e.Kind, e.Column)
}

// Engine is the refiner stage: the only stage permitted to mutate the
// dataset. It applies its operations in a fixed canonical order; config
// toggles individual steps but never reorders them.
type Engine struct {
	cfg    config.RefinerConfig
	store  artifact.Store
	logger *zap.Logger
}

// New creates the refiner engine
func New(cfg config.RefinerConfig, store artifact.Store, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Engine{cfg: cfg, store: store, logger: logger}, nil
}

// Name returns the stage name
func (e *Engine) Name() string { return "refiner" }

// Enabled reports whether the stage is switched on in config
func (e *Engine) Enabled() bool { return e.cfg.Enabled }

// Run executes the enabled operations in canonical order. Any step failure
// aborts the stage; records for completed steps remain in the log, but the
// orchestrator must never persist the dataset when the stage failed.
func (e *Engine) Run(ctx context.Context, h *dataset.Handle, runID string) stage.Outcome {
	start := time.Now()
	rowsBefore := h.Data().Rows()
	colsBefore := h.Data().Cols()
	logBefore := h.LogLen()

	e.logger.Info("Running refiner stage",
		zap.String("dataset", h.Name()),
		zap.Int("rows", rowsBefore),
		zap.Int("columns", colsBefore))

	steps := []struct {
		name    string
		enabled bool
		run     func(*dataset.Handle) error
	}{
		{"standardize_names", e.cfg.StandardizeNames, e.standardizeNames},
		{"remove_duplicates", e.cfg.RemoveDuplicates, e.removeDuplicates},
		{"handle_missing", e.cfg.HandleMissing, e.handleMissing},
		{"unify_categories", e.cfg.UnifyCategories, e.unifyCategories},
		{"normalize", e.cfg.Normalize, e.normalizeColumns},
	}

	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stage.Failure(e.Name(), time.Since(start), err)
		}
		if err := step.run(h); err != nil {
			e.logger.Error("Refiner step failed",
				zap.String("step", step.name),
				zap.Error(err))
			return stage.Failure(e.Name(), time.Since(start), fmt.Errorf("%s: %w", step.name, err))
		}
	}

	outcome := stage.Success(e.Name(), time.Since(start))
	outcome.RowDelta = h.Data().Rows() - rowsBefore
	outcome.ColumnDelta = h.Data().Cols() - colsBefore

	if err := e.writeSummary(ctx, h, runID, rowsBefore, colsBefore, logBefore); err != nil {
		e.logger.Warn("Failed to write refiner summary artifact", zap.Error(err))
	}

	e.logger.Info("Refiner stage completed",
		zap.String("dataset", h.Name()),
		zap.Int("rowsBefore", rowsBefore),
		zap.Int("rowsAfter", h.Data().Rows()),
		zap.Int("columnsBefore", colsBefore),
		zap.Int("columnsAfter", h.Data().Cols()),
		zap.Int("operations", h.LogLen()-logBefore))
	return outcome
}

// refinerSummary is the stage's artifact payload
type refinerSummary struct {
	RowsBefore    int                            `json:"rows_before"`
	RowsAfter     int                            `json:"rows_after"`
	ColumnsBefore int                            `json:"columns_before"`
	ColumnsAfter  int                            `json:"columns_after"`
	Operations    []dataset.TransformationRecord `json:"operations"`
}

// writeSummary stores the per-run refiner summary in the artifact store
func (e *Engine) writeSummary(ctx context.Context, h *dataset.Handle, runID string, rowsBefore, colsBefore, logBefore int) error {
	records := h.Log()
	summary := refinerSummary{
		RowsBefore:    rowsBefore,
		RowsAfter:     h.Data().Rows(),
		ColumnsBefore: colsBefore,
		ColumnsAfter:  h.Data().Cols(),
		Operations:    records[logBefore:],
	}
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return e.store.Put(ctx, runID, "refiner/summary.json", payload)
}

// trackedColumns resolves the configured tracked column set, defaulting to
// all columns. Unknown configured names fail loudly rather than silently
// shrinking the set. The returned slice is always a copy so callers can
// drop columns from the dataset while iterating it.
func trackedColumns(ds *dataset.Dataset, configured []string) ([]*dataset.Column, error) {
	if len(configured) == 0 {
		return append([]*dataset.Column(nil), ds.Columns()...), nil
	}
	cols := make([]*dataset.Column, 0, len(configured))
	for _, name := range configured {
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("configured column %q not found in dataset", name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
