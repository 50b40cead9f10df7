package stream

import (
	"math"
	"testing"
	"time"

	"racebot/internal/domain"
	"racebot/internal/service"
)

func seedCache(t *testing.T) *service.Cache {
	t.Helper()
	cache := service.NewCache()
	cache.ApplyCatalogue([]domain.CatalogueEntry{{
		MarketID:  "1.234",
		StartTime: time.Now().UTC().Add(2 * time.Minute),
		Runners: []domain.RunnerDesc{
			{SelectionID: "101", Name: "1. Early Mist"},
		},
	}})
	return cache
}

func TestIngestor_ApplyMarketChange(t *testing.T) {
	t.Run("Forward Fill Retains Absent Fields", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.234",
			Runners: []RunnerChange{{
				SelectionID: "101",
				Back:        []PricePoint{{Price: 2.5, Volume: 120}},
				Lay:         []PricePoint{{Price: 2.6, Volume: 80}},
			}},
		})
		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.234",
			Runners: []RunnerChange{{
				SelectionID: "101",
				Back:        []PricePoint{{Price: 2.4, Volume: 90}},
			}},
		})

		r := cache.Market("1.234").Runners["101"]
		if r.Back != 2.4 {
			t.Errorf("Back = %v, want 2.4", r.Back)
		}
		if r.Lay != 2.6 {
			t.Errorf("Lay should forward-fill to 2.6, got %v", r.Lay)
		}
		if r.LaySeries.Len() != 2 {
			t.Fatalf("Lay series should record the filled value too, len = %d", r.LaySeries.Len())
		}
		vals := r.LaySeries.Values()
		if vals[0] != 2.6 || vals[1] != 2.6 {
			t.Errorf("Lay series = %v, want [2.6 2.6]", vals)
		}
	})

	t.Run("Overruns Recomputed After Tick", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.234",
			Runners: []RunnerChange{{
				SelectionID: "101",
				Back:        []PricePoint{{Price: 4.0}},
			}},
		})

		mb := cache.Market("1.234")
		if math.Abs(mb.BackOverrun-0.25) > 1e-9 {
			t.Errorf("BackOverrun = %v, want 0.25", mb.BackOverrun)
		}
		if mb.SecondsToStart <= 0 {
			t.Errorf("SecondsToStart should be positive before the start, got %v", mb.SecondsToStart)
		}
	})

	t.Run("Traded Volume Accumulates", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		for i := 0; i < 3; i++ {
			in.ApplyMarketChange(&MarketChange{
				MarketID: "1.234",
				Runners: []RunnerChange{{
					SelectionID: "101",
					Traded:      []PricePoint{{Price: 3.0, Volume: 50}},
				}},
			})
		}

		r := cache.Market("1.234").Runners["101"]
		if r.Volume != 150 {
			t.Errorf("Volume = %v, want 150", r.Volume)
		}
		if r.Last != 3.0 {
			t.Errorf("Last = %v, want 3.0", r.Last)
		}
		if r.LastStat.Avg != 3.0 {
			t.Errorf("LastStat.Avg = %v, want 3.0", r.LastStat.Avg)
		}
	})

	t.Run("Only Best Traded Level Consumed", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.234",
			Runners: []RunnerChange{{
				SelectionID: "101",
				Traded: []PricePoint{
					{Price: 2.0, Volume: 100},
					{Price: 4.0, Volume: 300},
				},
			}},
		})

		r := cache.Market("1.234").Runners["101"]
		if r.Last != 2.0 {
			t.Errorf("Last = %v, want best level 2.0", r.Last)
		}
		if r.Volume != 100 {
			t.Errorf("Volume = %v, want 100", r.Volume)
		}
	})

	t.Run("Untracked Market Dropped", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.999",
			Runners: []RunnerChange{{
				SelectionID: "555",
				Back:        []PricePoint{{Price: 2.0}},
			}},
		})

		if cache.Market("1.999") != nil {
			t.Error("Untracked market must not be created by a stream event")
		}
	})

	t.Run("Unknown Runner Inserted On Demand", func(t *testing.T) {
		cache := seedCache(t)
		in := NewIngestor(cache, nil)

		in.ApplyMarketChange(&MarketChange{
			MarketID: "1.234",
			Runners: []RunnerChange{{
				SelectionID: "202",
				Back:        []PricePoint{{Price: 8.0}},
			}},
		})

		r := cache.Market("1.234").Runners["202"]
		if r == nil {
			t.Fatal("Runner should be created from its first tick")
		}
		if r.Back != 8.0 {
			t.Errorf("Back = %v, want 8.0", r.Back)
		}
	})
}

func TestVWAP(t *testing.T) {
	t.Run("Weighted Average", func(t *testing.T) {
		v, ok := VWAP([]PricePoint{
			{Price: 2.0, Volume: 100},
			{Price: 4.0, Volume: 300},
		})
		if !ok || v != 3.5 {
			t.Errorf("VWAP = %v (ok=%v), want 3.5", v, ok)
		}
	})

	t.Run("Zero Volume", func(t *testing.T) {
		if _, ok := VWAP([]PricePoint{{Price: 2.0}}); ok {
			t.Error("Zero traded volume must report not ok")
		}
		if _, ok := VWAP(nil); ok {
			t.Error("Empty ladder must report not ok")
		}
	})
}
