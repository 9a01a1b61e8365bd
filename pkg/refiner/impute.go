// pkg/refiner/impute.go
package refiner

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// handleMissing dispatches to the configured missing-value strategy
func (e *Engine) handleMissing(h *dataset.Handle) error {
	switch e.cfg.MissingStrategy {
	case "drop":
		return e.dropMissingRows(h)
	case "mean", "median":
		return e.imputeCentral(h, e.cfg.MissingStrategy)
	case "mode":
		return e.imputeMode(h)
	case "knn":
		return e.imputeKNN(h)
	case "smart":
		return e.imputeSmart(h)
	default:
		// Unreachable after config validation
		return fmt.Errorf("unknown missing strategy %q", e.cfg.MissingStrategy)
	}
}

// dropMissingRows removes every row with a missing cell in the tracked
// column set
func (e *Engine) dropMissingRows(h *dataset.Handle) error {
	ds := h.Data()
	tracked, err := trackedColumns(ds, e.cfg.MissingColumns)
	if err != nil {
		return err
	}

	keep := make([]int, 0, ds.Rows())
	for i := 0; i < ds.Rows(); i++ {
		complete := true
		for _, col := range tracked {
			if col.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	dropped := ds.Rows() - len(keep)
	if dropped == 0 {
		return nil
	}
	if err := ds.SelectRows(keep); err != nil {
		return err
	}

	h.Record("handle_missing", map[string]string{
		"strategy":     "drop",
		"rows_dropped": strconv.Itoa(dropped),
	}, dropped, columnNames(tracked))
	e.logger.Info("Dropped rows with missing cells", zap.Int("dropped", dropped))
	return nil
}

// imputeCentral substitutes the column mean or median into missing numeric
// cells. A non-numeric column in the tracked set that needs imputation is
// a type mismatch.
func (e *Engine) imputeCentral(h *dataset.Handle, strategy string) error {
	ds := h.Data()
	tracked, err := trackedColumns(ds, e.cfg.MissingColumns)
	if err != nil {
		return err
	}

	for _, col := range tracked {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		if col.Kind != dataset.KindNumeric {
			return &TypeMismatchError{Column: col.Name, Operation: strategy + "_imputation", Kind: col.Kind}
		}

		values := col.NonMissingNumeric()
		if len(values) == 0 {
			e.logger.Warn("Column is entirely missing, cannot impute", zap.String("column", col.Name))
			continue
		}

		var fill float64
		if strategy == "mean" {
			fill = stat.Mean(values, nil)
		} else {
			fill = median(values)
		}
		fillMissingNumeric(col, fill)

		h.Record("handle_missing", map[string]string{
			"strategy": strategy,
			"column":   col.Name,
			"fill":     formatFloat(fill),
		}, missing, []string{col.Name})
		e.logger.Info("Imputed missing values",
			zap.String("column", col.Name),
			zap.String("strategy", strategy),
			zap.Int("cells", missing))
	}
	return nil
}

// imputeMode substitutes the most frequent non-missing value, for columns
// of any kind. Ties break on first-seen order.
func (e *Engine) imputeMode(h *dataset.Handle) error {
	ds := h.Data()
	tracked, err := trackedColumns(ds, e.cfg.MissingColumns)
	if err != nil {
		return err
	}

	for _, col := range tracked {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		idx, ok := modeIndex(col)
		if !ok {
			e.logger.Warn("Column is entirely missing, cannot impute", zap.String("column", col.Name))
			continue
		}
		fillMissingFromRow(col, idx)

		h.Record("handle_missing", map[string]string{
			"strategy": "mode",
			"column":   col.Name,
			"fill":     col.CellString(idx),
		}, missing, []string{col.Name})
		e.logger.Info("Imputed missing values",
			zap.String("column", col.Name),
			zap.String("strategy", "mode"),
			zap.Int("cells", missing))
	}
	return nil
}

// imputeSmart picks a per-column strategy: columns whose missing share
// exceeds the drop ceiling are removed; numeric columns get the mean when
// approximately symmetric and the median when skewed beyond the configured
// threshold; everything else gets the mode.
func (e *Engine) imputeSmart(h *dataset.Handle) error {
	ds := h.Data()

	// Column set is resolved up front so a dropped column cannot shift it
	tracked, err := trackedColumns(ds, e.cfg.MissingColumns)
	if err != nil {
		return err
	}

	for _, col := range tracked {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		share := float64(missing) / float64(col.Len())
		if share > e.cfg.SmartDropThreshold {
			if err := ds.DropColumn(col.Name); err != nil {
				return err
			}
			h.Record("handle_missing", map[string]string{
				"strategy":      "smart",
				"action":        "drop_column",
				"column":        col.Name,
				"missing_share": formatFloat(share),
			}, missing, []string{col.Name})
			e.logger.Info("Dropped column with excessive missing share",
				zap.String("column", col.Name),
				zap.Float64("share", share))
			continue
		}

		switch col.Kind {
		case dataset.KindNumeric:
			values := col.NonMissingNumeric()
			if len(values) == 0 {
				continue
			}
			strategy := "mean"
			fill := stat.Mean(values, nil)
			if skewed(values, e.cfg.SmartSkewThreshold) {
				strategy = "median"
				fill = median(values)
			}
			fillMissingNumeric(col, fill)
			h.Record("handle_missing", map[string]string{
				"strategy": "smart",
				"action":   strategy,
				"column":   col.Name,
				"fill":     formatFloat(fill),
			}, missing, []string{col.Name})

		default:
			idx, ok := modeIndex(col)
			if !ok {
				continue
			}
			fill := col.CellString(idx)
			fillMissingFromRow(col, idx)
			h.Record("handle_missing", map[string]string{
				"strategy": "smart",
				"action":   "mode",
				"column":   col.Name,
				"fill":     fill,
			}, missing, []string{col.Name})
		}
		e.logger.Info("Imputed missing values",
			zap.String("column", col.Name),
			zap.String("strategy", "smart"),
			zap.Int("cells", missing))
	}
	return nil
}

// imputeKNN fills missing numeric cells from the k nearest complete rows,
// measured by mean squared distance over shared numeric columns.
// Non-numeric columns fall back to mode. When fewer complete rows exist
// than the requested neighbor count, numeric columns fall back to the
// median instead.
func (e *Engine) imputeKNN(h *dataset.Handle) error {
	ds := h.Data()
	tracked, err := trackedColumns(ds, e.cfg.MissingColumns)
	if err != nil {
		return err
	}
	k := e.cfg.KNNNeighbors

	var numericCols []*dataset.Column
	for _, col := range ds.Columns() {
		if col.Kind == dataset.KindNumeric {
			numericCols = append(numericCols, col)
		}
	}

	// Donor rows are complete across every numeric column
	var donors []int
	for i := 0; i < ds.Rows(); i++ {
		complete := true
		for _, col := range numericCols {
			if col.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			donors = append(donors, i)
		}
	}

	enoughDonors := len(donors) >= k
	if !enoughDonors {
		e.logger.Warn("Not enough complete rows for knn, falling back to median/mode",
			zap.Int("completeRows", len(donors)),
			zap.Int("neighbors", k))
	}

	// Snapshot numeric values before imputation so fills never feed into
	// later distance computations
	frozen := make(map[string][]float64, len(numericCols))
	frozenMissing := make(map[string][]bool, len(numericCols))
	for _, col := range numericCols {
		frozen[col.Name] = append([]float64(nil), col.Numeric...)
		frozenMissing[col.Name] = append([]bool(nil), col.Missing...)
	}

	for _, col := range tracked {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		if col.Kind != dataset.KindNumeric {
			idx, ok := modeIndex(col)
			if !ok {
				continue
			}
			fillMissingFromRow(col, idx)
			h.Record("handle_missing", map[string]string{
				"strategy": "knn",
				"action":   "mode",
				"column":   col.Name,
			}, missing, []string{col.Name})
			continue
		}

		if !enoughDonors {
			values := col.NonMissingNumeric()
			if len(values) == 0 {
				continue
			}
			fill := median(values)
			fillMissingNumeric(col, fill)
			h.Record("handle_missing", map[string]string{
				"strategy": "knn",
				"action":   "median_fallback",
				"column":   col.Name,
				"fill":     formatFloat(fill),
			}, missing, []string{col.Name})
			continue
		}

		// Cells with no shared numeric dimensions against the donors get
		// the column median, same as the few-donors fallback
		var observed []float64
		for i, v := range frozen[col.Name] {
			if !frozenMissing[col.Name][i] {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			continue
		}
		fallback := median(observed)

		filled := 0
		for i := 0; i < col.Len(); i++ {
			if !col.IsMissing(i) {
				continue
			}
			neighbors := nearestDonors(i, donors, numericCols, frozen, frozenMissing, col.Name, k)
			if len(neighbors) == 0 {
				col.Numeric[i] = fallback
				col.Missing[i] = false
				filled++
				continue
			}
			sum := 0.0
			for _, j := range neighbors {
				sum += frozen[col.Name][j]
			}
			col.Numeric[i] = sum / float64(len(neighbors))
			col.Missing[i] = false
			filled++
		}

		h.Record("handle_missing", map[string]string{
			"strategy":  "knn",
			"column":    col.Name,
			"neighbors": strconv.Itoa(k),
		}, filled, []string{col.Name})
		e.logger.Info("Imputed missing values",
			zap.String("column", col.Name),
			zap.String("strategy", "knn"),
			zap.Int("cells", filled))
	}
	return nil
}

// nearestDonors ranks donor rows by mean squared distance over the numeric
// columns where the target row has values, excluding the column being
// imputed. Ties break on lower row index for determinism.
func nearestDonors(target int, donors []int, numericCols []*dataset.Column, frozen map[string][]float64, frozenMissing map[string][]bool, excludeCol string, k int) []int {
	type candidate struct {
		row  int
		dist float64
	}

	candidates := make([]candidate, 0, len(donors))
	for _, j := range donors {
		if j == target {
			continue
		}
		sum := 0.0
		dims := 0
		for _, col := range numericCols {
			if col.Name == excludeCol {
				continue
			}
			if frozenMissing[col.Name][target] {
				continue
			}
			diff := frozen[col.Name][target] - frozen[col.Name][j]
			sum += diff * diff
			dims++
		}
		if dims == 0 {
			continue
		}
		candidates = append(candidates, candidate{row: j, dist: sum / float64(dims)})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist < candidates[b].dist
		}
		return candidates[a].row < candidates[b].row
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.row
	}
	return out
}

// median returns the middle value of the inputs; the mean of the two middle
// values for even counts
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// skewed reports whether the sample skewness magnitude exceeds the
// threshold. Fewer than three values are treated as symmetric.
func skewed(values []float64, threshold float64) bool {
	if len(values) < 3 {
		return false
	}
	s := stat.Skew(values, nil)
	if math.IsNaN(s) {
		return false
	}
	return math.Abs(s) > threshold
}

// modeIndex returns a row index holding the most frequent non-missing
// value. Ties resolve to the value seen first in row order.
func modeIndex(col *dataset.Column) (int, bool) {
	counts := make(map[string]int)
	firstRow := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		key := col.CellString(i)
		counts[key]++
		if _, ok := firstRow[key]; !ok {
			firstRow[key] = i
		}
	}
	if len(counts) == 0 {
		return 0, false
	}

	best := ""
	bestCount := -1
	for key, count := range counts {
		if count > bestCount || (count == bestCount && firstRow[key] < firstRow[best]) {
			best = key
			bestCount = count
		}
	}
	return firstRow[best], true
}

// fillMissingNumeric writes fill into every missing cell of a numeric column
func fillMissingNumeric(col *dataset.Column, fill float64) {
	for i := range col.Missing {
		if col.Missing[i] {
			col.Numeric[i] = fill
			col.Missing[i] = false
		}
	}
}

// fillMissingFromRow copies the value at row idx into every missing cell
func fillMissingFromRow(col *dataset.Column, idx int) {
	for i := range col.Missing {
		if !col.Missing[i] {
			continue
		}
		switch col.Kind {
		case dataset.KindNumeric:
			col.Numeric[i] = col.Numeric[idx]
		case dataset.KindText:
			col.Text[i] = col.Text[idx]
		case dataset.KindBool:
			col.Bool[i] = col.Bool[idx]
		}
		col.Missing[i] = false
	}
}

// columnNames extracts names from a column slice
func columnNames(cols []*dataset.Column) []string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// formatFloat renders a float compactly for log records
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
