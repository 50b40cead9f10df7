package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"racebot/internal/domain"
	"racebot/internal/service"
)

type fakeSource struct {
	entries []domain.CatalogueEntry
	err     error
}

func (f *fakeSource) FetchCatalogue(ctx context.Context) ([]domain.CatalogueEntry, error) {
	return f.entries, f.err
}

type fakeEnrich struct {
	asked   []string
	records map[string]map[string]string
}

func (f *fakeEnrich) LookupRunners(names []string) (map[string]map[string]string, error) {
	f.asked = append(f.asked, names...)
	return f.records, nil
}

func snapshot() []domain.CatalogueEntry {
	return []domain.CatalogueEntry{{
		MarketID:  "1.1",
		StartTime: time.Now().UTC().Add(time.Hour),
		Runners: []domain.RunnerDesc{
			{SelectionID: "101", Name: "1. Early Mist"},
			{SelectionID: "102", Name: "2. Night Watch"},
		},
	}}
}

func TestRefresher_Refresh(t *testing.T) {
	t.Run("Applies Snapshot And Enrichment", func(t *testing.T) {
		cache := service.NewCache()
		enrich := &fakeEnrich{records: map[string]map[string]string{
			"early mist": {"W%": "18%"},
		}}
		r := NewRefresher(cache, &fakeSource{entries: snapshot()}, enrich, nil, time.Minute, nil)

		r.refresh(context.Background())

		if !cache.IsTracked("1.1") {
			t.Error("Snapshot market should be tracked after refresh")
		}
		sort.Strings(enrich.asked)
		want := []string{"early mist", "night watch"}
		if len(enrich.asked) != 2 || enrich.asked[0] != want[0] || enrich.asked[1] != want[1] {
			t.Errorf("Enrichment asked for %v, want %v", enrich.asked, want)
		}
		if info := cache.HorseInfo("1. Early Mist"); info == nil || info["W%"] != "18%" {
			t.Errorf("Enrichment record not attached, got %v", info)
		}
	})

	t.Run("Fetch Failure Keeps Previous Snapshot", func(t *testing.T) {
		cache := service.NewCache()
		src := &fakeSource{entries: snapshot()}
		r := NewRefresher(cache, src, nil, nil, time.Minute, nil)
		r.refresh(context.Background())

		src.entries = nil
		src.err = errors.New("exchange timeout")
		r.refresh(context.Background())

		if !cache.IsTracked("1.1") {
			t.Error("A failed fetch must not evict the previous snapshot")
		}
	})

	t.Run("Empty Snapshot Evicts Everything", func(t *testing.T) {
		cache := service.NewCache()
		src := &fakeSource{entries: snapshot()}
		r := NewRefresher(cache, src, nil, nil, time.Minute, nil)
		r.refresh(context.Background())

		src.entries = nil
		r.refresh(context.Background())

		if cache.IsTracked("1.1") {
			t.Error("An empty successful snapshot evicts every market")
		}
	})
}
