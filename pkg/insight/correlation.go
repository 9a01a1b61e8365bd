// pkg/insight/correlation.go
package insight

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// CorrelationMatrix holds pairwise Pearson coefficients between numeric
// columns, computed over rows where every numeric column is present
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
	// Rows is the number of complete rows the coefficients were computed on
	Rows int `json:"rows"`
}

// BuildCorrelations computes the Pearson matrix for the dataset's numeric
// columns. Pairs without variance report zero.
func BuildCorrelations(ds *dataset.Dataset) CorrelationMatrix {
	var cols []*dataset.Column
	for _, col := range ds.Columns() {
		if col.Kind == dataset.KindNumeric {
			cols = append(cols, col)
		}
	}

	m := CorrelationMatrix{}
	for _, col := range cols {
		m.Columns = append(m.Columns, col.Name)
	}
	if len(cols) == 0 {
		return m
	}

	// Complete rows only, so every pair uses the same sample
	var rows []int
	for i := 0; i < ds.Rows(); i++ {
		complete := true
		for _, col := range cols {
			if col.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	m.Rows = len(rows)

	samples := make([][]float64, len(cols))
	for ci, col := range cols {
		samples[ci] = make([]float64, len(rows))
		for ri, r := range rows {
			samples[ci][ri] = col.Numeric[r]
		}
	}

	m.Values = make([][]float64, len(cols))
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
		for j := range cols {
			switch {
			case i == j:
				m.Values[i][j] = 1
			case j < i:
				m.Values[i][j] = m.Values[j][i]
			default:
				r := 0.0
				if len(rows) >= 2 {
					r = stat.Correlation(samples[i], samples[j], nil)
					if math.IsNaN(r) {
						r = 0
					}
				}
				m.Values[i][j] = r
			}
		}
	}
	return m
}
