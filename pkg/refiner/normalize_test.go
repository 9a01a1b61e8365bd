// pkg/refiner/normalize_test.go
package refiner

import (
	"errors"
	"math"
	"testing"

	"github.com/refinery-project/refinery/pkg/dataset"
)

func TestMinMaxNormalization(t *testing.T) {
	cfg := baseConfig()
	cfg.NormalizationMethod = "minmax"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("v", []float64{10, 20, 30}, nil),
	)

	if err := e.normalizeColumns(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("v")
	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if col.Numeric[i] != w {
			t.Errorf("v[%d] = %g, want %g", i, col.Numeric[i], w)
		}
	}
}

func TestZScoreNormalization(t *testing.T) {
	cfg := baseConfig()
	cfg.NormalizationMethod = "zscore"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("v", []float64{2, 4, 6}, nil),
	)

	if err := e.normalizeColumns(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("v")
	// Sample std of {2,4,6} is 2, mean 4
	want := []float64{-1, 0, 1}
	for i, w := range want {
		if math.Abs(col.Numeric[i]-w) > 1e-9 {
			t.Errorf("v[%d] = %g, want %g", i, col.Numeric[i], w)
		}
	}
}

func TestNormalizationConstantColumnMapsToZero(t *testing.T) {
	for _, method := range []string{"minmax", "zscore"} {
		t.Run(method, func(t *testing.T) {
			cfg := baseConfig()
			cfg.NormalizationMethod = method
			e, _ := newTestEngine(t, cfg)
			h := newHandle(t,
				dataset.NewNumericColumn("v", []float64{7, 7, 7}, nil),
			)

			if err := e.normalizeColumns(h); err != nil {
				t.Fatal(err)
			}
			col, _ := h.Data().Column("v")
			for i := range col.Numeric {
				if col.Numeric[i] != 0 {
					t.Errorf("v[%d] = %g, want 0", i, col.Numeric[i])
				}
			}
		})
	}
}

func TestNormalizationPreservesMissingCells(t *testing.T) {
	cfg := baseConfig()
	cfg.NormalizationMethod = "minmax"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("v", []float64{10, 999, 30}, []bool{false, true, false}),
	)

	if err := e.normalizeColumns(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("v")
	if !col.IsMissing(1) {
		t.Error("missing cell lost its mask")
	}
	if col.Numeric[1] != 999 {
		t.Errorf("missing cell value rewritten to %g", col.Numeric[1])
	}
	if col.Numeric[0] != 0 || col.Numeric[2] != 1 {
		t.Errorf("normalized values = %v, want [0 _ 1]", col.Numeric)
	}
}

func TestNormalizationRejectsNonNumericColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.ColumnsToNormalize = []string{"name"}
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("name", []string{"a", "b"}, nil),
	)

	err := e.normalizeColumns(h)
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
	var terr *TypeMismatchError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TypeMismatchError, got %T", err)
	}
}

func TestNormalizationDefaultsToAllNumericColumns(t *testing.T) {
	cfg := baseConfig()
	cfg.NormalizationMethod = "minmax"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("a", []float64{0, 10}, nil),
		dataset.NewTextColumn("b", []string{"x", "y"}, nil),
	)

	if err := e.normalizeColumns(h); err != nil {
		t.Fatal(err)
	}
	// Text column untouched, numeric normalized
	a, _ := h.Data().Column("a")
	if a.Numeric[1] != 1 {
		t.Errorf("a[1] = %g, want 1", a.Numeric[1])
	}
	b, _ := h.Data().Column("b")
	if b.Text[0] != "x" {
		t.Error("text column mutated")
	}
	if h.LogLen() != 1 {
		t.Errorf("log length = %d, want 1 (numeric column only)", h.LogLen())
	}
}
