// pkg/dataset/handle.go
package dataset

import (
	"errors"
)

// Handle wraps a mutable dataset together with its transformation log.
// The orchestrator owns the handle for the duration of a run and lends it
// to exactly one stage at a time.
type Handle struct {
	name string
	data *Dataset
	log  Log
}

// NewHandle creates a handle around a loaded dataset
func NewHandle(name string, data *Dataset) (*Handle, error) {
	if data == nil {
		return nil, errors.New("dataset cannot be nil")
	}
	if name == "" {
		name = "dataset"
	}
	return &Handle{name: name, data: data}, nil
}

// Name returns the dataset name used for reporting
func (h *Handle) Name() string {
	return h.name
}

// Data returns the live dataset. Only the refiner stage may mutate it.
func (h *Handle) Data() *Dataset {
	return h.data
}

// SetData replaces the dataset after a rebuilding transformation
func (h *Handle) SetData(data *Dataset) {
	if data != nil {
		h.data = data
	}
}

// Record appends a transformation record describing one applied operation
func (h *Handle) Record(operation string, params map[string]string, rowsAffected int, columnsAffected []string) {
	h.log.Append(TransformationRecord{
		Operation:       operation,
		Parameters:      params,
		RowsAffected:    rowsAffected,
		ColumnsAffected: columnsAffected,
	})
}

// Log returns a copy of the transformation records appended so far
func (h *Handle) Log() []TransformationRecord {
	return h.log.Records()
}

// LogLen returns the number of transformation records
func (h *Handle) LogLen() int {
	return h.log.Len()
}
