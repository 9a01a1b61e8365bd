// pkg/refiner/dedupe_test.go
package refiner

import (
	"testing"

	"github.com/refinery-project/refinery/pkg/dataset"
)

func TestRemoveDuplicatesKeepsFirstOccurrence(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("name", []string{"a", "b", "a", "c", "b"}, nil),
		dataset.NewNumericColumn("v", []float64{1, 2, 1, 3, 2}, nil),
	)

	if err := e.removeDuplicates(h); err != nil {
		t.Fatal(err)
	}

	ds := h.Data()
	if ds.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", ds.Rows())
	}
	col, _ := ds.Column("name")
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if col.Text[i] != w {
			t.Errorf("row %d = %q, want %q", i, col.Text[i], w)
		}
	}

	log := h.Log()
	if len(log) != 1 || log[0].RowsAffected != 2 {
		t.Errorf("log = %+v, want one record with 2 rows affected", log)
	}
}

func TestRemoveDuplicatesWithKeySubset(t *testing.T) {
	cfg := baseConfig()
	cfg.DuplicateKeys = []string{"id"}
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("id", []float64{1, 2, 1}, nil),
		dataset.NewTextColumn("note", []string{"x", "y", "z"}, nil),
	)

	if err := e.removeDuplicates(h); err != nil {
		t.Fatal(err)
	}
	if h.Data().Rows() != 2 {
		t.Fatalf("rows = %d, want 2", h.Data().Rows())
	}
	// First occurrence wins even when other columns differ
	note, _ := h.Data().Column("note")
	if note.Text[0] != "x" || note.Text[1] != "y" {
		t.Errorf("kept rows = %v, want [x y]", note.Text)
	}
}

func TestRemoveDuplicatesUnknownKeyColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.DuplicateKeys = []string{"nope"}
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t, dataset.NewNumericColumn("id", []float64{1}, nil))

	if err := e.removeDuplicates(h); err == nil {
		t.Fatal("expected error for unknown key column")
	}
}

func TestRemoveDuplicatesMissingAndEmptyDiffer(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("a", []string{"", ""}, []bool{true, false}),
	)

	if err := e.removeDuplicates(h); err != nil {
		t.Fatal(err)
	}
	if h.Data().Rows() != 2 {
		t.Errorf("missing cell treated as duplicate of empty string")
	}
}
