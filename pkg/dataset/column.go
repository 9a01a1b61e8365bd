// pkg/dataset/column.go
package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the cell type a column holds
type Kind int

const (
	// KindNumeric holds float64 cells
	KindNumeric Kind = iota
	// KindText holds string cells
	KindText
	// KindBool holds boolean cells
	KindBool
)

// String returns a string representation of the column kind
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Column is a homogeneous sequence of typed cells plus a missing-value mask.
// Exactly one of the value slices is populated, matching Kind; Missing always
// has the same length as the populated slice.
type Column struct {
	Name    string
	Kind    Kind
	Numeric []float64
	Text    []string
	Bool    []bool
	Missing []bool
}

// NewNumericColumn creates a numeric column. A nil missing mask means no
// missing cells.
func NewNumericColumn(name string, values []float64, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: KindNumeric, Numeric: values, Missing: missing}
}

// NewTextColumn creates a text column. A nil missing mask means no missing cells.
func NewTextColumn(name string, values []string, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: KindText, Text: values, Missing: missing}
}

// NewBoolColumn creates a boolean column. A nil missing mask means no missing cells.
func NewBoolColumn(name string, values []bool, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: KindBool, Bool: values, Missing: missing}
}

// Len returns the number of cells in the column
func (c *Column) Len() int {
	return len(c.Missing)
}

// IsMissing reports whether the cell at index i is the missing marker
func (c *Column) IsMissing(i int) bool {
	return c.Missing[i]
}

// MissingCount returns the number of missing cells in the column
func (c *Column) MissingCount() int {
	count := 0
	for _, m := range c.Missing {
		if m {
			count++
		}
	}
	return count
}

// SetMissing marks the cell at index i as missing and zeroes its value
func (c *Column) SetMissing(i int) {
	c.Missing[i] = true
	switch c.Kind {
	case KindNumeric:
		c.Numeric[i] = 0
	case KindText:
		c.Text[i] = ""
	case KindBool:
		c.Bool[i] = false
	}
}

// CellString renders the cell at index i as a string. Missing cells render
// as the empty string, which is also the on-disk missing marker.
func (c *Column) CellString(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(c.Numeric[i], 'g', -1, 64)
	case KindText:
		return c.Text[i]
	case KindBool:
		return strconv.FormatBool(c.Bool[i])
	default:
		return ""
	}
}

// NonMissingNumeric returns the non-missing numeric values in row order.
// Returns nil for non-numeric columns.
func (c *Column) NonMissingNumeric() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Numeric))
	for i, v := range c.Numeric {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	out.Missing = append([]bool(nil), c.Missing...)
	switch c.Kind {
	case KindNumeric:
		out.Numeric = append([]float64(nil), c.Numeric...)
	case KindText:
		out.Text = append([]string(nil), c.Text...)
	case KindBool:
		out.Bool = append([]bool(nil), c.Bool...)
	}
	return out
}

// filter keeps only the cells whose index appears in idx, in the given order
func (c *Column) filter(idx []int) {
	missing := make([]bool, len(idx))
	for n, i := range idx {
		missing[n] = c.Missing[i]
	}
	switch c.Kind {
	case KindNumeric:
		values := make([]float64, len(idx))
		for n, i := range idx {
			values[n] = c.Numeric[i]
		}
		c.Numeric = values
	case KindText:
		values := make([]string, len(idx))
		for n, i := range idx {
			values[n] = c.Text[i]
		}
		c.Text = values
	case KindBool:
		values := make([]bool, len(idx))
		for n, i := range idx {
			values[n] = c.Bool[i]
		}
		c.Bool = values
	}
	c.Missing = missing
}

// validate checks internal consistency of the column
func (c *Column) validate() error {
	var valueLen int
	switch c.Kind {
	case KindNumeric:
		valueLen = len(c.Numeric)
	case KindText:
		valueLen = len(c.Text)
	case KindBool:
		valueLen = len(c.Bool)
	default:
		return fmt.Errorf("column %q: unknown kind %d", c.Name, c.Kind)
	}

	if valueLen != len(c.Missing) {
		return fmt.Errorf("column %q: %d values but %d missing flags", c.Name, valueLen, len(c.Missing))
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	return nil
}
