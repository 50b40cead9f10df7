package domain

import "testing"

func f(v float64) *float64 { return &v }

func TestCondition_Matches(t *testing.T) {
	t.Run("Inclusive Bounds", func(t *testing.T) {
		c := Condition{Min: f(30), Max: f(120)}
		for _, v := range []float64{30, 75, 120} {
			if !c.Matches(v) {
				t.Errorf("Expected %v to match [30, 120]", v)
			}
		}
		for _, v := range []float64{29.9, 120.1} {
			if c.Matches(v) {
				t.Errorf("Expected %v outside [30, 120]", v)
			}
		}
	})

	t.Run("Open Ended", func(t *testing.T) {
		min := Condition{Min: f(5)}
		if !min.Matches(1e9) || min.Matches(4.9) {
			t.Error("Min-only condition should bound below only")
		}
		max := Condition{Max: f(5)}
		if !max.Matches(-10) || max.Matches(5.1) {
			t.Error("Max-only condition should bound above only")
		}
		if !(Condition{}).Matches(42) {
			t.Error("Unbounded condition matches everything")
		}
	})
}

func TestStrategy_IsActive(t *testing.T) {
	for _, tc := range []struct {
		active string
		want   bool
	}{
		{StrategyOn, true},
		{StrategyDummy, true},
		{StrategyOff, false},
		{"", false},
	} {
		s := Strategy{Active: tc.active}
		if s.IsActive() != tc.want {
			t.Errorf("IsActive(%q) = %v, want %v", tc.active, s.IsActive(), tc.want)
		}
	}
}

func TestStrategy_AllowsCountry(t *testing.T) {
	t.Run("Empty List Allows All", func(t *testing.T) {
		s := Strategy{}
		if !s.AllowsCountry("AU") || !s.AllowsCountry("") {
			t.Error("Strategy with no country filter should allow any country")
		}
	})

	t.Run("Explicit List", func(t *testing.T) {
		s := Strategy{Countries: []string{"AU", "NZ"}}
		if !s.AllowsCountry("NZ") {
			t.Error("Expected NZ allowed")
		}
		if s.AllowsCountry("GB") {
			t.Error("Expected GB rejected")
		}
	})
}
