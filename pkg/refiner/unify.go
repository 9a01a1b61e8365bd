// pkg/refiner/unify.go
package refiner

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// unifyCategories merges near-duplicate category labels in text columns.
// Passes repeat until no replacements occur, so running the operation on
// its own output is a no-op.
func (e *Engine) unifyCategories(h *dataset.Handle) error {
	ds := h.Data()

	var targets []*dataset.Column
	if len(e.cfg.UnifyColumns) == 0 {
		for _, col := range ds.Columns() {
			if col.Kind == dataset.KindText {
				targets = append(targets, col)
			}
		}
	} else {
		for _, name := range e.cfg.UnifyColumns {
			col, ok := ds.Column(name)
			if !ok {
				e.logger.Warn("Unify column not found, skipping", zap.String("column", name))
				continue
			}
			if col.Kind != dataset.KindText {
				return &TypeMismatchError{Column: name, Operation: "unify_categories", Kind: col.Kind}
			}
			targets = append(targets, col)
		}
	}

	for _, col := range targets {
		mapping := make(map[string]string)
		cells := 0
		for {
			pass, replaced := unifyPass(col, e.cfg.FuzzyThreshold)
			if replaced == 0 {
				break
			}
			cells += replaced
			for from, to := range pass {
				// Collapse chains so the record maps originals to
				// their final label
				for orig, cur := range mapping {
					if cur == from {
						mapping[orig] = to
					}
				}
				if _, ok := mapping[from]; !ok {
					mapping[from] = to
				}
			}
		}
		if len(mapping) == 0 {
			continue
		}

		h.Record("unify_categories", map[string]string{
			"column":    col.Name,
			"threshold": formatFloat(e.cfg.FuzzyThreshold),
			"mapping":   formatMapping(mapping),
		}, cells, []string{col.Name})
		e.logger.Info("Unified category labels",
			zap.String("column", col.Name),
			zap.Int("merged", len(mapping)),
			zap.Int("cells", cells))
	}
	return nil
}

// unifyPass performs one greedy clustering sweep over the column's distinct
// values and rewrites merged labels in place. Returns the label mapping and
// the number of cells rewritten.
func unifyPass(col *dataset.Column, threshold float64) (map[string]string, int) {
	// Distinct values in first-seen row order, with frequencies
	var values []string
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v := col.Text[i]
		if counts[v] == 0 {
			values = append(values, v)
		}
		counts[v]++
	}
	if len(values) < 2 {
		return nil, 0
	}

	assigned := make(map[string]int, len(values))
	var clusters [][]string
	for _, v := range values {
		matched := false
		for ci := range clusters {
			if similarity(v, clusters[ci][0]) >= threshold {
				clusters[ci] = append(clusters[ci], v)
				assigned[v] = ci
				matched = true
				break
			}
		}
		if !matched {
			assigned[v] = len(clusters)
			clusters = append(clusters, []string{v})
		}
	}

	mapping := make(map[string]string)
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		canonical := members[0]
		for _, m := range members[1:] {
			if counts[m] > counts[canonical] {
				canonical = m
			}
		}
		for _, m := range members {
			if m != canonical {
				mapping[m] = canonical
			}
		}
	}
	if len(mapping) == 0 {
		return nil, 0
	}

	replaced := 0
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		if to, ok := mapping[col.Text[i]]; ok {
			col.Text[i] = to
			replaced++
		}
	}
	return mapping, replaced
}

// similarity scores two labels from 0 to 100 using edit distance over the
// longer label's rune length. Comparison is case-insensitive.
func similarity(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 100
	}
	maxLen := utf8.RuneCountInString(la)
	if n := utf8.RuneCountInString(lb); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(la, lb)
	return 100 * (1 - float64(dist)/float64(maxLen))
}

// formatMapping renders a label mapping as "a=>b;c=>b" with sorted keys
func formatMapping(mapping map[string]string) string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		sb.WriteString("=>")
		sb.WriteString(mapping[k])
	}
	return sb.String()
}
