// pkg/refiner/impute_test.go
package refiner

import (
	"errors"
	"math"
	"testing"

	"github.com/refinery-project/refinery/pkg/dataset"
)

func TestDropStrategyRemovesIncompleteRows(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "drop"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("a", []float64{1, 0, 3}, []bool{false, true, false}),
		dataset.NewTextColumn("b", []string{"x", "y", "z"}, nil),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	if h.Data().Rows() != 2 {
		t.Fatalf("rows = %d, want 2", h.Data().Rows())
	}
	if h.Data().MissingCells() != 0 {
		t.Error("missing cells remain after drop")
	}
}

func TestMeanAndMedianImputation(t *testing.T) {
	cases := []struct {
		strategy string
		want     float64
	}{
		// Values 1, 2, 9: mean 4, median 2
		{"mean", 4},
		{"median", 2},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			cfg := baseConfig()
			cfg.MissingStrategy = tc.strategy
			e, _ := newTestEngine(t, cfg)
			h := newHandle(t,
				dataset.NewNumericColumn("v", []float64{1, 2, 9, 0}, []bool{false, false, false, true}),
			)

			if err := e.handleMissing(h); err != nil {
				t.Fatal(err)
			}
			col, _ := h.Data().Column("v")
			if col.IsMissing(3) {
				t.Fatal("cell still missing")
			}
			if col.Numeric[3] != tc.want {
				t.Errorf("imputed = %g, want %g", col.Numeric[3], tc.want)
			}
		})
	}
}

func TestMeanImputationRejectsTextColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "mean"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("name", []string{"a", ""}, []bool{false, true}),
	)

	err := e.handleMissing(h)
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
	var terr *TypeMismatchError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TypeMismatchError, got %T: %v", err, err)
	}
	if terr.Column != "name" {
		t.Errorf("column = %q, want name", terr.Column)
	}
}

func TestModeImputationAnyKind(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "mode"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("color", []string{"red", "blue", "red", ""}, []bool{false, false, false, true}),
		dataset.NewBoolColumn("flag", []bool{true, true, false, false}, []bool{false, false, false, true}),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	color, _ := h.Data().Column("color")
	if color.Text[3] != "red" {
		t.Errorf("imputed color = %q, want red", color.Text[3])
	}
	flag, _ := h.Data().Column("flag")
	if !flag.Bool[3] {
		t.Error("imputed flag = false, want true (mode)")
	}
}

func TestModeTieBreaksOnFirstSeen(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "mode"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("v", []string{"b", "a", "b", "a", ""}, []bool{false, false, false, false, true}),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("v")
	if col.Text[4] != "b" {
		t.Errorf("tie broke to %q, want b (seen first)", col.Text[4])
	}
}

func TestSmartStrategyDropsMostlyMissingColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "smart"
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewNumericColumn("sparse", []float64{1, 0, 0, 0}, []bool{false, true, true, true}),
		dataset.NewNumericColumn("dense", []float64{1, 2, 3, 4}, nil),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Data().Column("sparse"); ok {
		t.Error("column with 75% missing not dropped")
	}
	if _, ok := h.Data().Column("dense"); !ok {
		t.Error("dense column lost")
	}
}

func TestSmartStrategyImputesColumnAfterDrop(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "smart"
	e, _ := newTestEngine(t, cfg)

	// The column right after a dropped column must still be visited
	h := newHandle(t,
		dataset.NewNumericColumn("sparse", []float64{1, 0, 0, 0}, []bool{false, true, true, true}),
		dataset.NewNumericColumn("holes", []float64{1, 2, 3, 0}, []bool{false, false, false, true}),
		dataset.NewNumericColumn("dense", []float64{5, 6, 7, 8}, nil),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Data().Column("sparse"); ok {
		t.Error("mostly-missing column not dropped")
	}
	holes, ok := h.Data().Column("holes")
	if !ok {
		t.Fatal("column after dropped column lost")
	}
	if holes.MissingCount() != 0 {
		t.Error("column after dropped column was skipped: missing cell not imputed")
	}

	// One drop record, one imputation record; the trailing column has no
	// missing cells so it must not be visited at all
	log := h.Log()
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2: %+v", len(log), log)
	}
}

func TestSmartStrategySkewSelectsMedian(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "smart"
	e, _ := newTestEngine(t, cfg)

	// Heavy right tail pushes skewness above 1
	skewed := []float64{1, 1, 1, 1, 1, 2, 2, 3, 100, 0}
	missing := make([]bool, len(skewed))
	missing[len(skewed)-1] = true
	h := newHandle(t, dataset.NewNumericColumn("v", skewed, missing))

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	log := h.Log()
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1", len(log))
	}
	if log[0].Parameters["action"] != "median" {
		t.Errorf("action = %q, want median", log[0].Parameters["action"])
	}
	col, _ := h.Data().Column("v")
	if col.Numeric[9] != 1 {
		t.Errorf("imputed = %g, want median 1", col.Numeric[9])
	}
}

func TestSmartStrategySymmetricSelectsMean(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "smart"
	e, _ := newTestEngine(t, cfg)

	values := []float64{1, 2, 3, 4, 5, 0}
	missing := []bool{false, false, false, false, false, true}
	h := newHandle(t, dataset.NewNumericColumn("v", values, missing))

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	log := h.Log()
	if log[0].Parameters["action"] != "mean" {
		t.Errorf("action = %q, want mean", log[0].Parameters["action"])
	}
	col, _ := h.Data().Column("v")
	if col.Numeric[5] != 3 {
		t.Errorf("imputed = %g, want mean 3", col.Numeric[5])
	}
}

func TestKNNImputationUsesNearestRows(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "knn"
	cfg.KNNNeighbors = 2
	e, _ := newTestEngine(t, cfg)

	// Row 4 is missing y; its nearest complete rows by x are rows 0 and 1
	h := newHandle(t,
		dataset.NewNumericColumn("x", []float64{1, 2, 50, 60, 1.5}, nil),
		dataset.NewNumericColumn("y", []float64{10, 20, 500, 600, 0}, []bool{false, false, false, false, true}),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("y")
	if col.IsMissing(4) {
		t.Fatal("cell still missing")
	}
	if col.Numeric[4] != 15 {
		t.Errorf("imputed = %g, want 15 (mean of rows 0 and 1)", col.Numeric[4])
	}
}

func TestKNNFallsBackWithFewCompleteRows(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "knn"
	cfg.KNNNeighbors = 5
	e, _ := newTestEngine(t, cfg)

	// Only two complete rows, fewer than the requested five neighbors
	h := newHandle(t,
		dataset.NewNumericColumn("x", []float64{1, 3, 0}, []bool{false, false, true}),
		dataset.NewNumericColumn("y", []float64{2, 4, 6}, nil),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("x")
	if col.IsMissing(2) {
		t.Fatal("cell still missing")
	}
	if col.Numeric[2] != 2 {
		t.Errorf("imputed = %g, want median 2", col.Numeric[2])
	}
	log := h.Log()
	if len(log) != 1 || log[0].Parameters["action"] != "median_fallback" {
		t.Errorf("log = %+v, want median_fallback record", log)
	}
}

func TestKNNSingleNumericColumnFallsBackToMedian(t *testing.T) {
	cfg := baseConfig()
	cfg.MissingStrategy = "knn"
	cfg.KNNNeighbors = 2
	e, _ := newTestEngine(t, cfg)

	// With one numeric column there are no shared dimensions to measure
	// distance over; the cell takes the column median instead
	h := newHandle(t,
		dataset.NewNumericColumn("v", []float64{1, 2, 3, 4, 0}, []bool{false, false, false, false, true}),
	)

	if err := e.handleMissing(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("v")
	if col.IsMissing(4) {
		t.Fatal("cell still missing")
	}
	if col.Numeric[4] != 2.5 {
		t.Errorf("imputed = %g, want median 2.5", col.Numeric[4])
	}
	log := h.Log()
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1: %+v", len(log), log)
	}
	if log[0].RowsAffected != 1 {
		t.Errorf("rows affected = %d, want 1", log[0].RowsAffected)
	}
}

func TestMedianEvenCount(t *testing.T) {
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median = %g, want 2.5", got)
	}
	if got := median([]float64{5}); got != 5 {
		t.Errorf("median = %g, want 5", got)
	}
}

func TestSkewedGuards(t *testing.T) {
	if skewed([]float64{1, 2}, 1.0) {
		t.Error("two values reported as skewed")
	}
	if skewed([]float64{1, 2, 3}, 1.0) {
		t.Error("symmetric values reported as skewed")
	}
	tail := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 50}
	if !skewed(tail, 1.0) {
		t.Error("heavy tail not reported as skewed")
	}
	if skewed([]float64{math.NaN(), 1, 2}, 1.0) {
		t.Error("NaN skew reported as skewed")
	}
}
