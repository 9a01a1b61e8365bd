// pkg/refiner/unify_test.go
package refiner

import (
	"testing"

	"github.com/refinery-project/refinery/pkg/dataset"
)

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"nyc", "NYC", 100},
		{"", "", 100},
		{"abc", "xyz", 0},
		// One edit over four runes: 75
		{"york", "york", 100},
		{"york", "years", 40},
	}
	for _, tc := range cases {
		if got := similarity(tc.a, tc.b); got != tc.want {
			t.Errorf("similarity(%q, %q) = %g, want %g", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestUnifyMergesNearDuplicates(t *testing.T) {
	cfg := baseConfig()
	cfg.FuzzyThreshold = 80
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("city", []string{"new york", "New York", "new yorkk", "boston"}, nil),
	)

	if err := e.unifyCategories(h); err != nil {
		t.Fatal(err)
	}

	col, _ := h.Data().Column("city")
	// "new york" appears first and ties on frequency, so it wins
	want := []string{"new york", "new york", "new york", "boston"}
	for i, w := range want {
		if col.Text[i] != w {
			t.Errorf("row %d = %q, want %q", i, col.Text[i], w)
		}
	}

	log := h.Log()
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1", len(log))
	}
	if log[0].Operation != "unify_categories" {
		t.Errorf("operation = %q", log[0].Operation)
	}
}

func TestUnifyCanonicalIsMostFrequent(t *testing.T) {
	cfg := baseConfig()
	cfg.FuzzyThreshold = 80
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("city", []string{"seattlee", "seattle", "seattle"}, nil),
	)

	if err := e.unifyCategories(h); err != nil {
		t.Fatal(err)
	}
	col, _ := h.Data().Column("city")
	for i := range col.Text {
		if col.Text[i] != "seattle" {
			t.Errorf("row %d = %q, want seattle (more frequent)", i, col.Text[i])
		}
	}
}

func TestUnifyIsIdempotent(t *testing.T) {
	cfg := baseConfig()
	cfg.FuzzyThreshold = 70
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("v", []string{"alpha", "alphaa", "alphab", "beta"}, nil),
	)

	if err := e.unifyCategories(h); err != nil {
		t.Fatal(err)
	}
	firstLen := h.LogLen()

	if err := e.unifyCategories(h); err != nil {
		t.Fatal(err)
	}
	if h.LogLen() != firstLen {
		t.Error("second unify pass over unified data recorded new operations")
	}
}

func TestUnifyBelowThresholdLeavesValues(t *testing.T) {
	cfg := baseConfig()
	cfg.FuzzyThreshold = 95
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t,
		dataset.NewTextColumn("v", []string{"apple", "orange", "grape"}, nil),
	)

	if err := e.unifyCategories(h); err != nil {
		t.Fatal(err)
	}
	if h.LogLen() != 0 {
		t.Errorf("distinct values merged under high threshold: %+v", h.Log())
	}
}

func TestUnifyConfiguredColumnMustBeText(t *testing.T) {
	cfg := baseConfig()
	cfg.UnifyColumns = []string{"n"}
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t, dataset.NewNumericColumn("n", []float64{1, 2}, nil))

	if err := e.unifyCategories(h); err == nil {
		t.Fatal("expected type mismatch for numeric column")
	}
}

func TestUnifySkipsUnknownConfiguredColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.UnifyColumns = []string{"ghost"}
	e, _ := newTestEngine(t, cfg)
	h := newHandle(t, dataset.NewTextColumn("v", []string{"a", "b"}, nil))

	if err := e.unifyCategories(h); err != nil {
		t.Fatalf("unknown unify column should be skipped, got %v", err)
	}
	if h.LogLen() != 0 {
		t.Error("skip recorded operations")
	}
}
