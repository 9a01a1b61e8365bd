// pkg/inspector/profile.go
package inspector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// Profile is the read-only snapshot of a dataset's shape and quality
type Profile struct {
	Rows          int             `json:"rows"`
	Columns       int             `json:"columns"`
	DuplicateRows int             `json:"duplicate_rows"`
	MissingCells  int             `json:"missing_cells"`
	ColumnStats   []ColumnProfile `json:"column_stats"`
}

// ColumnProfile summarizes one column. Numeric fields are only populated
// for numeric columns.
type ColumnProfile struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Missing  int    `json:"missing"`
	Distinct int    `json:"distinct"`

	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Skew   *float64 `json:"skew,omitempty"`
}

// BuildProfile computes the dataset profile. Column order follows the
// dataset's column order so repeated runs produce identical payloads.
func BuildProfile(ds *dataset.Dataset) Profile {
	p := Profile{
		Rows:          ds.Rows(),
		Columns:       ds.Cols(),
		DuplicateRows: ds.DuplicateRows(),
		MissingCells:  ds.MissingCells(),
	}

	for _, col := range ds.Columns() {
		cp := ColumnProfile{
			Name:     col.Name,
			Kind:     col.Kind.String(),
			Missing:  col.MissingCount(),
			Distinct: distinctCount(col),
		}
		if col.Kind == dataset.KindNumeric {
			values := col.NonMissingNumeric()
			if len(values) > 0 {
				sorted := append([]float64(nil), values...)
				sort.Float64s(sorted)
				mean, std := stat.MeanStdDev(values, nil)
				cp.Mean = ptr(mean)
				cp.Median = ptr(stat.Quantile(0.5, stat.Empirical, sorted, nil))
				cp.Min = ptr(sorted[0])
				cp.Max = ptr(sorted[len(sorted)-1])
				if !math.IsNaN(std) {
					cp.Std = ptr(std)
				}
				if len(values) >= 3 {
					if s := stat.Skew(values, nil); !math.IsNaN(s) {
						cp.Skew = ptr(s)
					}
				}
			}
		}
		p.ColumnStats = append(p.ColumnStats, cp)
	}
	return p
}

func distinctCount(col *dataset.Column) int {
	seen := make(map[string]bool)
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		seen[col.CellString(i)] = true
	}
	return len(seen)
}

func ptr(v float64) *float64 { return &v }
