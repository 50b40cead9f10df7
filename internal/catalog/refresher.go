package catalog

import (
	"context"
	"log/slog"
	"time"

	"racebot/internal/domain"
	"racebot/internal/infra"
	"racebot/internal/service"
)

// Source fetches the current market catalogue snapshot from the exchange.
type Source interface {
	FetchCatalogue(ctx context.Context) ([]domain.CatalogueEntry, error)
}

// MetaStore persists catalogue metadata for external consumers.
type MetaStore interface {
	UpsertMarketMeta(entries []domain.CatalogueEntry) error
}

// Refresher periodically replaces the cache's current-race set with the
// latest catalogue snapshot and reloads enrichment records for every
// runner it names. Markets absent from a snapshot are evicted.
type Refresher struct {
	cache    *service.Cache
	source   Source
	enrich   domain.EnrichmentSource
	store    MetaStore
	interval time.Duration
	metrics  *infra.Metrics
}

// NewRefresher wires a catalogue source into the cache.
func NewRefresher(cache *service.Cache, source Source, enrich domain.EnrichmentSource, store MetaStore, interval time.Duration, metrics *infra.Metrics) *Refresher {
	return &Refresher{
		cache:    cache,
		source:   source,
		enrich:   enrich,
		store:    store,
		interval: interval,
		metrics:  metrics,
	}
}

// Run refreshes immediately and then on the configured cadence. Fetch
// failures leave the previous snapshot in place.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	entries, err := r.source.FetchCatalogue(ctx)
	if err != nil {
		slog.Warn("catalogue fetch failed", slog.Any("error", err))
		return
	}
	r.cache.ApplyCatalogue(entries)

	if r.store != nil {
		if err := r.store.UpsertMarketMeta(entries); err != nil {
			slog.Warn("metadata upsert failed", slog.Any("error", err))
		}
	}

	if r.enrich != nil {
		names := runnerNames(entries)
		if len(names) > 0 {
			records, err := r.enrich.LookupRunners(names)
			if err != nil {
				slog.Warn("enrichment lookup failed", slog.Any("error", err))
			} else if len(records) > 0 {
				r.cache.SetHorseInfo(records)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.RecordCatalogueRefresh()
	}
	r.cache.Signal()
	slog.Debug("catalogue refreshed", slog.Int("markets", len(entries)))
}

// runnerNames collects the normalized names of every runner in the
// snapshot, deduplicated.
func runnerNames(entries []domain.CatalogueEntry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		for _, rd := range e.Runners {
			n := domain.NormalizeRunnerName(rd.Name)
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	return names
}
