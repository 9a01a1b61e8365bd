// pkg/dataset/log.go
package dataset

import (
	"time"
)

// TransformationRecord is the audit entry for a single applied transformation.
// The sequence of records is the definitive trail of how raw input became
// processed output.
type TransformationRecord struct {
	Seq             int               `json:"seq"`              // Ordinal position in the log, starting at 0
	Operation       string            `json:"operation"`        // Operation name (e.g. "standardize_names")
	Parameters      map[string]string `json:"parameters"`       // Parameters used, rendered as strings
	RowsAffected    int               `json:"rows_affected"`    // Rows touched by the operation
	ColumnsAffected []string          `json:"columns_affected"` // Columns touched by the operation
	RecordedAt      time.Time         `json:"recorded_at"`      // When the record was appended (metadata only)
}

// Log is an append-only ordered sequence of transformation records.
// Records are never rewritten; Append is the only mutation.
type Log struct {
	records []TransformationRecord
}

// Append adds a record to the log, assigning its ordinal and timestamp
func (l *Log) Append(rec TransformationRecord) {
	rec.Seq = len(l.records)
	rec.RecordedAt = time.Now().UTC()
	l.records = append(l.records, rec)
}

// Records returns a copy of the log so callers cannot rewrite history
func (l *Log) Records() []TransformationRecord {
	out := make([]TransformationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records in the log
func (l *Log) Len() int {
	return len(l.records)
}
