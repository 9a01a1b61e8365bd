// pkg/refiner/dedupe.go
package refiner

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// removeDuplicates drops rows whose key matches an earlier row, keeping the
// first occurrence in original row order. The key is either the full row
// or the configured key-column subset.
func (e *Engine) removeDuplicates(h *dataset.Handle) error {
	ds := h.Data()

	keyCols, err := trackedColumns(ds, e.cfg.DuplicateKeys)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, ds.Rows())
	keep := make([]int, 0, ds.Rows())
	for i := 0; i < ds.Rows(); i++ {
		key := ds.RowKey(i, keyCols)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}

	removed := ds.Rows() - len(keep)
	if removed == 0 {
		e.logger.Debug("No duplicate rows found")
		return nil
	}

	if err := ds.SelectRows(keep); err != nil {
		return err
	}

	params := map[string]string{
		"removed": strconv.Itoa(removed),
	}
	var affected []string
	if len(e.cfg.DuplicateKeys) > 0 {
		params["keys"] = strings.Join(e.cfg.DuplicateKeys, ",")
		affected = append([]string(nil), e.cfg.DuplicateKeys...)
	} else {
		params["keys"] = "all_columns"
	}

	h.Record("remove_duplicates", params, removed, affected)
	e.logger.Info("Removed duplicate rows", zap.Int("removed", removed))
	return nil
}
