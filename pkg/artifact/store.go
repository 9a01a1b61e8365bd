// pkg/artifact/store.go
package artifact

import (
	"context"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// Store is the write-only side channel stages populate with derived outputs
// (profile reports, validation results, summaries). Writes are append-only:
// a key already written within a run must not be overwritten. Keys are
// namespaced by stage, e.g. "inspector/profile.json", and every write is
// scoped to a run identifier so independent runs never collide.
type Store interface {
	Put(ctx context.Context, runID, key string, payload []byte) error
	Close() error
}

// LogSink is implemented by stores that additionally persist the
// transformation log as structured rows rather than an opaque payload.
// The orchestrator uses it when available.
type LogSink interface {
	AppendLog(ctx context.Context, runID string, records []dataset.TransformationRecord) error
}
