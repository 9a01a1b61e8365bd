// pkg/refiner/names_test.go
package refiner

import (
	"errors"
	"testing"

	"github.com/refinery-project/refinery/pkg/dataset"
)

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"First Name", "first_name"},
		{"first_name", "first_name"},
		{"  Total $ Amount  ", "total_amount"},
		{"UPPER", "upper"},
		{"a--b__c", "a_b_c"},
		{"", "column"},
		{"!!!", "column"},
		{"2024 sales", "col_2024_sales"},
		{"café au lait", "café_au_lait"},
	}
	for _, tc := range cases {
		if got := CanonicalName(tc.in); got != tc.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStandardizeNamesRenamesAndRecords(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("First Name", []float64{1}, nil),
		dataset.NewNumericColumn("already_fine", []float64{2}, nil),
	)

	if err := e.standardizeNames(h); err != nil {
		t.Fatal(err)
	}

	if _, ok := h.Data().Column("first_name"); !ok {
		t.Error("renamed column not found")
	}
	if _, ok := h.Data().Column("already_fine"); !ok {
		t.Error("untouched column lost")
	}

	log := h.Log()
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1", len(log))
	}
	if log[0].Operation != "standardize_names" {
		t.Errorf("operation = %q", log[0].Operation)
	}
	if log[0].Parameters["First Name"] != "first_name" {
		t.Errorf("rename parameter = %q, want first_name", log[0].Parameters["First Name"])
	}
}

func TestStandardizeNamesNoopRecordsNothing(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t, dataset.NewNumericColumn("fine", []float64{1}, nil))

	if err := e.standardizeNames(h); err != nil {
		t.Fatal(err)
	}
	if h.LogLen() != 0 {
		t.Errorf("noop recorded %d operations", h.LogLen())
	}
}

func TestStandardizeNamesCollision(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("First Name", []float64{1}, nil),
		dataset.NewNumericColumn("first-name", []float64{2}, nil),
	)

	err := e.standardizeNames(h)
	if err == nil {
		t.Fatal("expected collision error")
	}
	var cerr *NameCollisionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *NameCollisionError, got %T", err)
	}
	if cerr.Canonical != "first_name" {
		t.Errorf("canonical = %q, want first_name", cerr.Canonical)
	}
	if len(cerr.Originals) != 2 {
		t.Errorf("originals = %v, want both names", cerr.Originals)
	}

	// Failed step leaves names untouched
	if _, ok := h.Data().Column("First Name"); !ok {
		t.Error("original name mutated despite collision")
	}
}

func TestStandardizeNamesReportsFirstCollisionGroup(t *testing.T) {
	cfg := baseConfig()
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("Last Name", []float64{1}, nil),
		dataset.NewNumericColumn("last-name", []float64{2}, nil),
		dataset.NewNumericColumn("First Name", []float64{3}, nil),
		dataset.NewNumericColumn("first-name", []float64{4}, nil),
	)

	// Two groups collide; the reported one must not depend on map order
	var cerr *NameCollisionError
	err := e.standardizeNames(h)
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *NameCollisionError, got %T", err)
	}
	if cerr.Canonical != "first_name" {
		t.Errorf("canonical = %q, want first_name", cerr.Canonical)
	}
	if len(cerr.Originals) != 2 || cerr.Originals[0] != "First Name" {
		t.Errorf("originals = %v, want sorted [First Name first-name]", cerr.Originals)
	}
}
