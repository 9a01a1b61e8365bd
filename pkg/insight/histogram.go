// pkg/insight/histogram.go
package insight

import (
	"github.com/refinery-project/refinery/pkg/dataset"
)

// Histogram holds equal-width bin counts for one numeric column
type Histogram struct {
	Column string    `json:"column"`
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// BuildHistograms bins every numeric column into the given number of
// equal-width buckets. Constant columns collapse into a single bucket
// holding every value.
func BuildHistograms(ds *dataset.Dataset, bins int) []Histogram {
	if bins < 1 {
		bins = 10
	}

	var out []Histogram
	for _, col := range ds.Columns() {
		if col.Kind != dataset.KindNumeric {
			continue
		}
		values := col.NonMissingNumeric()
		if len(values) == 0 {
			continue
		}

		min, max := values[0], values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		if min == max {
			out = append(out, Histogram{
				Column: col.Name,
				Edges:  []float64{min, max},
				Counts: []int{len(values)},
			})
			continue
		}

		width := (max - min) / float64(bins)
		edges := make([]float64, bins+1)
		for i := 0; i <= bins; i++ {
			edges[i] = min + float64(i)*width
		}
		edges[bins] = max

		counts := make([]int, bins)
		for _, v := range values {
			b := int((v - min) / width)
			if b >= bins {
				b = bins - 1
			}
			counts[b]++
		}
		out = append(out, Histogram{Column: col.Name, Edges: edges, Counts: counts})
	}
	return out
}
