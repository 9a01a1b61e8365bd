// pkg/dataio/csv.go
package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// readDelimited loads a delimited-text file into a typed dataset.
// The first record is the header; cell types are inferred per column.
func readDelimited(path string, comma rune) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("file has no header row")
	}

	header := records[0]
	rows := records[1:]

	columns := make([]*dataset.Column, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j >= len(row) {
				return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(header))
			}
			cells[i] = row[j]
		}
		columns[j] = inferColumn(name, cells)
	}

	return dataset.New(columns...)
}

// writeDelimited saves a dataset as delimited text. Missing cells are
// written as empty fields.
func writeDelimited(ds *dataset.Dataset, path string, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma

	if err := w.Write(ds.ColumnNames()); err != nil {
		return err
	}

	cols := ds.Columns()
	row := make([]string, len(cols))
	for i := 0; i < ds.Rows(); i++ {
		for j, col := range cols {
			row[j] = col.CellString(i)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// isMissingToken reports whether a raw cell is one of the recognized
// missing markers
func isMissingToken(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

// inferColumn types a raw string column. A column is numeric if every
// non-missing cell parses as a float, boolean if every non-missing cell
// parses as a bool, and text otherwise. An all-missing column is text.
func inferColumn(name string, cells []string) *dataset.Column {
	missing := make([]bool, len(cells))
	nonMissing := 0
	numericOK := true
	boolOK := true

	for i, cell := range cells {
		if isMissingToken(cell) {
			missing[i] = true
			continue
		}
		nonMissing++
		trimmed := strings.TrimSpace(cell)
		if numericOK {
			if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
				numericOK = false
			}
		}
		if boolOK {
			if _, err := parseBool(trimmed); err != nil {
				boolOK = false
			}
		}
	}

	switch {
	case nonMissing > 0 && boolOK:
		values := make([]bool, len(cells))
		for i, cell := range cells {
			if missing[i] {
				continue
			}
			values[i], _ = parseBool(strings.TrimSpace(cell))
		}
		return dataset.NewBoolColumn(name, values, missing)

	case nonMissing > 0 && numericOK:
		values := make([]float64, len(cells))
		for i, cell := range cells {
			if missing[i] {
				continue
			}
			values[i], _ = strconv.ParseFloat(strings.TrimSpace(cell), 64)
		}
		return dataset.NewNumericColumn(name, values, missing)

	default:
		values := make([]string, len(cells))
		for i, cell := range cells {
			if !missing[i] {
				values[i] = cell
			}
		}
		return dataset.NewTextColumn(name, values, missing)
	}
}

// parseBool accepts the common boolean spellings found in exported data
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y":
		return true, nil
	case "false", "f", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse %q as boolean", s)
	}
}
