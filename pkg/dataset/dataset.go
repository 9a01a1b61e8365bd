// pkg/dataset/dataset.go
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Dataset is an ordered sequence of named, equal-length columns.
// Invariants: all columns have the same row count and column names are unique.
type Dataset struct {
	columns []*Column
}

// New creates a dataset from columns, enforcing the structural invariants
func New(columns ...*Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, errors.New("dataset requires at least one column")
	}

	seen := make(map[string]bool, len(columns))
	rows := columns[0].Len()
	for _, col := range columns {
		if err := col.validate(); err != nil {
			return nil, err
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true
		if col.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name, col.Len(), rows)
		}
	}

	return &Dataset{columns: columns}, nil
}

// Rows returns the row count
func (d *Dataset) Rows() int {
	if len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

// Cols returns the column count
func (d *Dataset) Cols() int {
	return len(d.columns)
}

// Columns returns the columns in order. The slice and columns are live
// references; callers honoring read-only contracts must not mutate them.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// Column returns the column with the given name
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, col := range d.columns {
		if col.Name == name {
			return col, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

// DropColumn removes the named column from the dataset
func (d *Dataset) DropColumn(name string) error {
	for i, col := range d.columns {
		if col.Name == name {
			d.columns = append(d.columns[:i], d.columns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("column %q not found", name)
}

// SelectRows retains only the rows whose indices appear in idx, in the
// given order. Indices must be valid and strictly increasing to preserve
// original row order.
func (d *Dataset) SelectRows(idx []int) error {
	rows := d.Rows()
	prev := -1
	for _, i := range idx {
		if i < 0 || i >= rows {
			return fmt.Errorf("row index %d out of range [0,%d)", i, rows)
		}
		if i <= prev {
			return fmt.Errorf("row indices must be strictly increasing, got %d after %d", i, prev)
		}
		prev = i
	}
	for _, col := range d.columns {
		col.filter(idx)
	}
	return nil
}

// RowKey builds a deterministic composite key over the given columns for the
// row at index i. Missing cells contribute a dedicated sentinel so that a
// missing cell never collides with an empty text cell.
func (d *Dataset) RowKey(i int, cols []*Column) string {
	var sb strings.Builder
	for n, col := range cols {
		if n > 0 {
			sb.WriteByte(0x1f) // unit separator keeps cell boundaries unambiguous
		}
		if col.IsMissing(i) {
			sb.WriteString("\x00missing")
			continue
		}
		sb.WriteString(col.CellString(i))
	}
	return sb.String()
}

// MissingCells returns the total number of missing cells across all columns
func (d *Dataset) MissingCells() int {
	total := 0
	for _, col := range d.columns {
		total += col.MissingCount()
	}
	return total
}

// DuplicateRows counts rows that are full-row duplicates of an earlier row
func (d *Dataset) DuplicateRows() int {
	seen := make(map[string]bool, d.Rows())
	dups := 0
	for i := 0; i < d.Rows(); i++ {
		key := d.RowKey(i, d.columns)
		if seen[key] {
			dups++
		}
		seen[key] = true
	}
	return dups
}

// Clone returns a deep copy of the dataset
func (d *Dataset) Clone() *Dataset {
	columns := make([]*Column, len(d.columns))
	for i, col := range d.columns {
		columns[i] = col.Clone()
	}
	return &Dataset{columns: columns}
}
