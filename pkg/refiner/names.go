// pkg/refiner/names.go
package refiner

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// standardizeNames rewrites every column name to canonical snake_case.
// Two distinct originals normalizing to the same canonical form abort the
// step with a NameCollisionError.
func (e *Engine) standardizeNames(h *dataset.Handle) error {
	ds := h.Data()

	byCanonical := make(map[string][]string)
	renames := make(map[string]string)
	var changed []string

	for _, col := range ds.Columns() {
		canonical := CanonicalName(col.Name)
		byCanonical[canonical] = append(byCanonical[canonical], col.Name)
		if canonical != col.Name {
			renames[col.Name] = canonical
			changed = append(changed, canonical)
		}
	}

	var collided []string
	for canonical, originals := range byCanonical {
		if len(originals) > 1 {
			collided = append(collided, canonical)
		}
	}
	if len(collided) > 0 {
		sort.Strings(collided)
		originals := byCanonical[collided[0]]
		sort.Strings(originals)
		return &NameCollisionError{Canonical: collided[0], Originals: originals}
	}

	if len(renames) == 0 {
		e.logger.Debug("Column names already canonical")
		return nil
	}

	params := make(map[string]string, len(renames))
	for _, col := range ds.Columns() {
		if canonical, ok := renames[col.Name]; ok {
			params[col.Name] = canonical
			col.Name = canonical
		}
	}

	h.Record("standardize_names", params, 0, changed)
	e.logger.Info("Standardized column names", zap.Int("renamed", len(renames)))
	return nil
}

// CanonicalName normalizes a column name: lower case, runs of
// non-alphanumeric characters collapse to a single underscore, leading and
// trailing underscores trimmed. An empty result falls back to "column".
func CanonicalName(name string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimRight(sb.String(), "_")
	if out == "" {
		return "column"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = fmt.Sprintf("col_%s", out)
	}
	return out
}
