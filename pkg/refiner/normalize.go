// pkg/refiner/normalize.go
package refiner

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// normalizeColumns rescales numeric columns with min-max or z-score.
// Missing cells are left untouched; constant columns map to zero under
// both methods.
func (e *Engine) normalizeColumns(h *dataset.Handle) error {
	ds := h.Data()

	var targets []*dataset.Column
	if len(e.cfg.ColumnsToNormalize) == 0 {
		for _, col := range ds.Columns() {
			if col.Kind == dataset.KindNumeric {
				targets = append(targets, col)
			}
		}
	} else {
		for _, name := range e.cfg.ColumnsToNormalize {
			col, ok := ds.Column(name)
			if !ok {
				return fmt.Errorf("configured column %q not found in dataset", name)
			}
			if col.Kind != dataset.KindNumeric {
				return &TypeMismatchError{Column: name, Operation: "normalize", Kind: col.Kind}
			}
			targets = append(targets, col)
		}
	}

	for _, col := range targets {
		values := col.NonMissingNumeric()
		if len(values) == 0 {
			e.logger.Warn("Column is entirely missing, skipping normalization", zap.String("column", col.Name))
			continue
		}

		params := map[string]string{
			"column": col.Name,
			"method": e.cfg.NormalizationMethod,
		}
		cells := len(values)

		switch e.cfg.NormalizationMethod {
		case "minmax":
			min, max := minMax(values)
			span := max - min
			for i := range col.Numeric {
				if col.Missing[i] {
					continue
				}
				if span == 0 {
					col.Numeric[i] = 0
				} else {
					col.Numeric[i] = (col.Numeric[i] - min) / span
				}
			}
			params["min"] = formatFloat(min)
			params["max"] = formatFloat(max)

		case "zscore":
			mean, std := stat.MeanStdDev(values, nil)
			if math.IsNaN(std) {
				std = 0
			}
			for i := range col.Numeric {
				if col.Missing[i] {
					continue
				}
				if std == 0 {
					col.Numeric[i] = 0
				} else {
					col.Numeric[i] = (col.Numeric[i] - mean) / std
				}
			}
			params["mean"] = formatFloat(mean)
			params["std"] = formatFloat(std)
		}

		h.Record("normalize", params, cells, []string{col.Name})
		e.logger.Info("Normalized column",
			zap.String("column", col.Name),
			zap.String("method", e.cfg.NormalizationMethod))
	}
	return nil
}

func minMax(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
