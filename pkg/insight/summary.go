// pkg/insight/summary.go
package insight

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// Summary captures descriptive statistics for every column
type Summary struct {
	Rows        int                  `json:"rows"`
	Numeric     []NumericSummary     `json:"numeric"`
	Categorical []CategoricalSummary `json:"categorical"`
}

// NumericSummary is the five-number summary plus moments for one numeric
// column
type NumericSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Skew   float64 `json:"skew"`
}

// CategoricalSummary describes a text or bool column
type CategoricalSummary struct {
	Column      string `json:"column"`
	Count       int    `json:"count"`
	Cardinality int    `json:"cardinality"`
	Top         string `json:"top"`
	TopCount    int    `json:"top_count"`
}

// BuildSummary computes per-column summaries in dataset column order
func BuildSummary(ds *dataset.Dataset) Summary {
	s := Summary{Rows: ds.Rows()}

	for _, col := range ds.Columns() {
		if col.Kind == dataset.KindNumeric {
			values := col.NonMissingNumeric()
			if len(values) == 0 {
				continue
			}
			sorted := append([]float64(nil), values...)
			sort.Float64s(sorted)
			mean, std := stat.MeanStdDev(values, nil)
			if math.IsNaN(std) {
				std = 0
			}
			skew := 0.0
			if len(values) >= 3 {
				if v := stat.Skew(values, nil); !math.IsNaN(v) {
					skew = v
				}
			}
			s.Numeric = append(s.Numeric, NumericSummary{
				Column: col.Name,
				Count:  len(values),
				Mean:   mean,
				Std:    std,
				Min:    sorted[0],
				Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
				Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
				Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
				Max:    sorted[len(sorted)-1],
				Skew:   skew,
			})
			continue
		}

		top, topCount, cardinality, count := topValue(col)
		if count == 0 {
			continue
		}
		s.Categorical = append(s.Categorical, CategoricalSummary{
			Column:      col.Name,
			Count:       count,
			Cardinality: cardinality,
			Top:         top,
			TopCount:    topCount,
		})
	}
	return s
}

// topValue returns the most frequent non-missing value, breaking ties on
// first appearance
func topValue(col *dataset.Column) (string, int, int, int) {
	counts := make(map[string]int)
	firstRow := make(map[string]int)
	total := 0
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v := col.CellString(i)
		if _, ok := firstRow[v]; !ok {
			firstRow[v] = i
		}
		counts[v]++
		total++
	}
	if total == 0 {
		return "", 0, 0, 0
	}

	top := ""
	topCount := -1
	for v, c := range counts {
		if c > topCount || (c == topCount && firstRow[v] < firstRow[top]) {
			top = v
			topCount = c
		}
	}
	return top, topCount, len(counts), total
}
