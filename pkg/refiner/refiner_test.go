// pkg/refiner/refiner_test.go
package refiner

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/dataset"
)

// memStore collects artifacts in memory for assertions
type memStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{payloads: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, runID, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[runID+"/"+key] = payload
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestEngine(t *testing.T, cfg config.RefinerConfig) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	e, err := New(cfg, store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return e, store
}

func newHandle(t *testing.T, cols ...*dataset.Column) *dataset.Handle {
	t.Helper()
	ds, err := dataset.New(cols...)
	if err != nil {
		t.Fatal(err)
	}
	h, err := dataset.NewHandle("test", ds)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func baseConfig() config.RefinerConfig {
	cfg := config.Default().Refiner
	cfg.StandardizeNames = false
	cfg.RemoveDuplicates = false
	cfg.HandleMissing = false
	cfg.UnifyCategories = false
	cfg.Normalize = false
	return cfg
}

func TestRunSkipsDisabledSteps(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)

	h := newHandle(t, dataset.NewTextColumn("Messy Name", []string{"a", "a"}, nil))
	outcome := e.Run(context.Background(), h, "run-1")
	if !outcome.Succeeded {
		t.Fatalf("run failed: %v", outcome.Err)
	}
	if h.LogLen() != 0 {
		t.Errorf("disabled steps recorded %d operations", h.LogLen())
	}
	col, ok := h.Data().Column("Messy Name")
	if !ok || col == nil {
		t.Error("column renamed despite standardize_names disabled")
	}
}

func TestRunWritesSummaryArtifact(t *testing.T) {
	cfg := baseConfig()
	cfg.RemoveDuplicates = true
	e, store := newTestEngine(t, cfg)

	h := newHandle(t, dataset.NewNumericColumn("a", []float64{1, 1, 2}, nil))
	outcome := e.Run(context.Background(), h, "run-1")
	if !outcome.Succeeded {
		t.Fatalf("run failed: %v", outcome.Err)
	}
	if _, ok := store.payloads["run-1/refiner/summary.json"]; !ok {
		t.Error("refiner summary artifact not written")
	}
	if outcome.RowDelta != -1 {
		t.Errorf("row delta = %d, want -1", outcome.RowDelta)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := config.Default().Refiner

	build := func() *dataset.Handle {
		return newHandle(t,
			dataset.NewTextColumn("City Name", []string{"NYC", "nyc", "NYC", "Boston"}, nil),
			dataset.NewNumericColumn("Score", []float64{1, 0, 1, 4}, []bool{false, true, false, false}),
		)
	}

	run := func() ([]dataset.TransformationRecord, *dataset.Dataset) {
		e, _ := newTestEngine(t, cfg)
		h := build()
		outcome := e.Run(context.Background(), h, "run")
		if !outcome.Succeeded {
			t.Fatalf("run failed: %v", outcome.Err)
		}
		return h.Log(), h.Data()
	}

	log1, ds1 := run()
	log2, ds2 := run()

	if len(log1) != len(log2) {
		t.Fatalf("log lengths differ: %d vs %d", len(log1), len(log2))
	}
	for i := range log1 {
		if log1[i].Operation != log2[i].Operation {
			t.Errorf("operation %d differs: %s vs %s", i, log1[i].Operation, log2[i].Operation)
		}
		for k, v := range log1[i].Parameters {
			if log2[i].Parameters[k] != v {
				t.Errorf("operation %d parameter %s differs: %s vs %s", i, k, v, log2[i].Parameters[k])
			}
		}
	}

	if ds1.Rows() != ds2.Rows() || ds1.Cols() != ds2.Cols() {
		t.Fatalf("shapes differ: %dx%d vs %dx%d", ds1.Rows(), ds1.Cols(), ds2.Rows(), ds2.Cols())
	}
	for i, name := range ds1.ColumnNames() {
		if ds2.ColumnNames()[i] != name {
			t.Errorf("column order differs at %d: %s vs %s", i, name, ds2.ColumnNames()[i])
		}
	}
}

func TestRunStepFailureAborts(t *testing.T) {
	cfg := baseConfig()
	cfg.HandleMissing = true
	cfg.MissingStrategy = "mean"
	e, _ := newTestEngine(t, cfg)

	// Text column with missing cells cannot take mean imputation
	h := newHandle(t,
		dataset.NewTextColumn("name", []string{"a", ""}, []bool{false, true}),
	)
	outcome := e.Run(context.Background(), h, "run-1")
	if outcome.Succeeded {
		t.Fatal("expected run to fail")
	}
	if outcome.Err == nil {
		t.Fatal("outcome carries no error")
	}
}
