// pkg/inspector/expectations.go
package inspector

import (
	"fmt"
	"strconv"

	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/dataset"
)

// ValidationResult is the pass/fail verdict of one expectation
type ValidationResult struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Column   string `json:"column,omitempty"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Observed string `json:"observed"`
}

// Evaluate checks a single expectation against the dataset. Evaluation
// never mutates the dataset; a malformed expectation (unknown kind,
// missing column) simply fails with the reason in the observed field.
func Evaluate(ds *dataset.Dataset, exp config.Expectation) ValidationResult {
	res := ValidationResult{ID: exp.ID, Kind: exp.Kind, Column: exp.Column}

	switch exp.Kind {
	case "row_count_min":
		min := 0.0
		if exp.Min != nil {
			min = *exp.Min
		}
		rows := ds.Rows()
		res.Expected = fmt.Sprintf("row count >= %g", min)
		res.Observed = strconv.Itoa(rows)
		res.Passed = float64(rows) >= min
		return res

	case "not_null":
		col, ok := ds.Column(exp.Column)
		if !ok {
			return unknownColumn(res, exp.Column)
		}
		missing := col.MissingCount()
		res.Expected = "0 missing cells"
		res.Observed = fmt.Sprintf("%d missing cells", missing)
		res.Passed = missing == 0
		return res

	case "not_all_missing":
		col, ok := ds.Column(exp.Column)
		if !ok {
			return unknownColumn(res, exp.Column)
		}
		missing := col.MissingCount()
		res.Expected = "at least one non-missing cell"
		res.Observed = fmt.Sprintf("%d of %d cells missing", missing, col.Len())
		res.Passed = col.Len() > 0 && missing < col.Len()
		return res

	case "unique":
		col, ok := ds.Column(exp.Column)
		if !ok {
			return unknownColumn(res, exp.Column)
		}
		dupes := duplicateValues(col)
		res.Expected = "all non-missing values distinct"
		res.Observed = fmt.Sprintf("%d duplicated values", dupes)
		res.Passed = dupes == 0
		return res

	case "values_between":
		col, ok := ds.Column(exp.Column)
		if !ok {
			return unknownColumn(res, exp.Column)
		}
		if col.Kind != dataset.KindNumeric {
			res.Expected = "numeric column"
			res.Observed = fmt.Sprintf("column kind %s", col.Kind)
			res.Passed = false
			return res
		}
		out := 0
		for i := 0; i < col.Len(); i++ {
			if col.IsMissing(i) {
				continue
			}
			v := col.Numeric[i]
			if exp.Min != nil && v < *exp.Min {
				out++
			} else if exp.Max != nil && v > *exp.Max {
				out++
			}
		}
		res.Expected = boundsLabel(exp.Min, exp.Max)
		res.Observed = fmt.Sprintf("%d values out of bounds", out)
		res.Passed = out == 0
		return res

	default:
		res.Expected = "known expectation kind"
		res.Observed = fmt.Sprintf("unknown kind %q", exp.Kind)
		res.Passed = false
		return res
	}
}

func unknownColumn(res ValidationResult, name string) ValidationResult {
	res.Expected = "column present"
	res.Observed = fmt.Sprintf("column %q not found", name)
	res.Passed = false
	return res
}

// duplicateValues counts non-missing cells whose value appeared earlier in
// the column
func duplicateValues(col *dataset.Column) int {
	seen := make(map[string]bool)
	dupes := 0
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		key := col.CellString(i)
		if seen[key] {
			dupes++
		}
		seen[key] = true
	}
	return dupes
}

func boundsLabel(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("values in [%g, %g]", *min, *max)
	case min != nil:
		return fmt.Sprintf("values >= %g", *min)
	case max != nil:
		return fmt.Sprintf("values <= %g", *max)
	default:
		return "no bounds"
	}
}
