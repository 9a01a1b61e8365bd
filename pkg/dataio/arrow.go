// pkg/dataio/arrow.go
package dataio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/ipc"
	"github.com/apache/arrow/go/v16/arrow/memory"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// readArrowFile loads a dataset from an Arrow IPC file. Numeric columns map
// from float64, text from utf8 and booleans from bool; nulls become the
// missing marker.
func readArrowFile(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer r.Close()

	schema := r.Schema()
	if schema == nil || len(schema.Fields()) == 0 {
		return nil, errors.New("arrow file has no columns")
	}

	builders := make([]*columnAccumulator, len(schema.Fields()))
	for j, field := range schema.Fields() {
		acc, err := newColumnAccumulator(field)
		if err != nil {
			return nil, err
		}
		builders[j] = acc
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read arrow record: %w", err)
		}
		for j := range builders {
			if err := builders[j].appendArray(rec.Column(j)); err != nil {
				return nil, err
			}
		}
	}

	columns := make([]*dataset.Column, len(builders))
	for j, acc := range builders {
		columns[j] = acc.column()
	}
	return dataset.New(columns...)
}

// writeArrowFile saves a dataset as a single-record Arrow IPC file, with
// missing cells written as nulls
func writeArrowFile(ds *dataset.Dataset, path string) error {
	fields := make([]arrow.Field, ds.Cols())
	for j, col := range ds.Columns() {
		var typ arrow.DataType
		switch col.Kind {
		case dataset.KindNumeric:
			typ = arrow.PrimitiveTypes.Float64
		case dataset.KindText:
			typ = arrow.BinaryTypes.String
		case dataset.KindBool:
			typ = arrow.FixedWidthTypes.Boolean
		default:
			return fmt.Errorf("column %q has unsupported kind %v", col.Name, col.Kind)
		}
		fields[j] = arrow.Field{Name: col.Name, Type: typ, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bld.Release()

	for j, col := range ds.Columns() {
		switch col.Kind {
		case dataset.KindNumeric:
			fb := bld.Field(j).(*array.Float64Builder)
			for i := 0; i < col.Len(); i++ {
				if col.IsMissing(i) {
					fb.AppendNull()
				} else {
					fb.Append(col.Numeric[i])
				}
			}
		case dataset.KindText:
			sb := bld.Field(j).(*array.StringBuilder)
			for i := 0; i < col.Len(); i++ {
				if col.IsMissing(i) {
					sb.AppendNull()
				} else {
					sb.Append(col.Text[i])
				}
			}
		case dataset.KindBool:
			bb := bld.Field(j).(*array.BooleanBuilder)
			for i := 0; i < col.Len(); i++ {
				if col.IsMissing(i) {
					bb.AppendNull()
				} else {
					bb.Append(col.Bool[i])
				}
			}
		}
	}

	rec := bld.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	return w.Close()
}

// columnAccumulator collects cells for one column across multiple arrow
// record batches
type columnAccumulator struct {
	name    string
	kind    dataset.Kind
	numeric []float64
	text    []string
	boolean []bool
	missing []bool
}

// newColumnAccumulator validates the arrow field type and prepares an
// accumulator for it
func newColumnAccumulator(field arrow.Field) (*columnAccumulator, error) {
	acc := &columnAccumulator{name: field.Name}
	switch field.Type.ID() {
	case arrow.FLOAT64:
		acc.kind = dataset.KindNumeric
	case arrow.STRING:
		acc.kind = dataset.KindText
	case arrow.BOOL:
		acc.kind = dataset.KindBool
	default:
		return nil, fmt.Errorf("column %q: unsupported arrow type %s", field.Name, field.Type)
	}
	return acc, nil
}

// appendArray copies one record batch column into the accumulator
func (acc *columnAccumulator) appendArray(arr arrow.Array) error {
	switch a := arr.(type) {
	case *array.Float64:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				acc.numeric = append(acc.numeric, 0)
				acc.missing = append(acc.missing, true)
			} else {
				acc.numeric = append(acc.numeric, a.Value(i))
				acc.missing = append(acc.missing, false)
			}
		}
	case *array.String:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				acc.text = append(acc.text, "")
				acc.missing = append(acc.missing, true)
			} else {
				acc.text = append(acc.text, a.Value(i))
				acc.missing = append(acc.missing, false)
			}
		}
	case *array.Boolean:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				acc.boolean = append(acc.boolean, false)
				acc.missing = append(acc.missing, true)
			} else {
				acc.boolean = append(acc.boolean, a.Value(i))
				acc.missing = append(acc.missing, false)
			}
		}
	default:
		return fmt.Errorf("column %q: unexpected array type %T", acc.name, arr)
	}
	return nil
}

// column converts the accumulated cells into a dataset column
func (acc *columnAccumulator) column() *dataset.Column {
	missing := acc.missing
	if missing == nil {
		missing = []bool{}
	}
	switch acc.kind {
	case dataset.KindNumeric:
		if acc.numeric == nil {
			acc.numeric = []float64{}
		}
		return dataset.NewNumericColumn(acc.name, acc.numeric, missing)
	case dataset.KindBool:
		if acc.boolean == nil {
			acc.boolean = []bool{}
		}
		return dataset.NewBoolColumn(acc.name, acc.boolean, missing)
	default:
		if acc.text == nil {
			acc.text = []string{}
		}
		return dataset.NewTextColumn(acc.name, acc.text, missing)
	}
}
