package domain

import (
	"math"
	"testing"
)

func TestMarketBook_RecomputeOverruns(t *testing.T) {
	t.Run("Reciprocal Sums", func(t *testing.T) {
		mb := NewMarketBook("1.234")
		a := NewRunnerState("101")
		a.Back, a.Lay, a.Last = 2.0, 2.2, 2.1
		b := NewRunnerState("102")
		b.Back, b.Lay, b.Last = 4.0, 4.4, 4.2
		mb.Runners["101"] = a
		mb.Runners["102"] = b

		mb.RecomputeOverruns()

		if math.Abs(mb.BackOverrun-(1/2.0+1/4.0)) > 1e-9 {
			t.Errorf("BackOverrun = %v, want 0.75", mb.BackOverrun)
		}
		if math.Abs(mb.LayOverrun-(1/2.2+1/4.4)) > 1e-9 {
			t.Errorf("LayOverrun = %v", mb.LayOverrun)
		}
	})

	t.Run("Zero Prices Skipped", func(t *testing.T) {
		mb := NewMarketBook("1.234")
		a := NewRunnerState("101")
		a.Back = 2.0
		b := NewRunnerState("102") // never quoted, all fields zero
		mb.Runners["101"] = a
		mb.Runners["102"] = b

		mb.RecomputeOverruns()

		if mb.BackOverrun != 0.5 {
			t.Errorf("BackOverrun = %v, want 0.5", mb.BackOverrun)
		}
		if mb.LayOverrun != 0 || mb.LastOverrun != 0 {
			t.Errorf("Unquoted fields should contribute nothing, got lay=%v last=%v", mb.LayOverrun, mb.LastOverrun)
		}
	})
}

func TestMarketBook_Orders(t *testing.T) {
	mb := NewMarketBook("1.234")
	mb.Orders = append(mb.Orders,
		&Order{StrategyName: "fav", SelectionID: "101"},
		&Order{StrategyName: "fav", SelectionID: "102"},
		&Order{StrategyName: "lay-out", SelectionID: "103"},
	)

	t.Run("Count Per Strategy", func(t *testing.T) {
		if got := mb.OrderCount("fav"); got != 2 {
			t.Errorf("OrderCount(fav) = %d, want 2", got)
		}
		if got := mb.OrderCount(""); got != 3 {
			t.Errorf("OrderCount() = %d, want 3", got)
		}
	})

	t.Run("One Order Per Runner Across Strategies", func(t *testing.T) {
		if !mb.HasOrderFor("103") {
			t.Error("Expected order on runner 103")
		}
		if mb.HasOrderFor("104") {
			t.Error("No order expected on runner 104")
		}
	})
}

func TestNormalizeRunnerName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"3. Fast Thunder", "fast thunder"},
		{"Fast Thunder", "fast thunder"},
		{"  12. ROCKET MAN ", "rocket man"},
	}
	for _, tc := range cases {
		if got := NormalizeRunnerName(tc.input); got != tc.want {
			t.Errorf("NormalizeRunnerName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
