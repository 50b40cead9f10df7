package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"racebot/internal/domain"
)

// Cache owns all mutable shared state: the market books, the current-race
// id set, the live strategy documents and the enrichment records. One
// RWMutex guards structure; readers take shallow snapshots under it and
// then work lock-free, so a slow strategy pass never blocks ingestion.
type Cache struct {
	mu          sync.RWMutex
	markets     map[string]*domain.MarketBook
	raceIDs     map[string]struct{}
	strategies  map[string]*domain.Strategy
	runnerNames map[string]string            // selection id -> display name
	horseInfo   map[string]map[string]string // normalized name -> record

	ready chan struct{} // closed and replaced on every data-available signal
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		markets:     make(map[string]*domain.MarketBook),
		raceIDs:     make(map[string]struct{}),
		strategies:  make(map[string]*domain.Strategy),
		runnerNames: make(map[string]string),
		horseInfo:   make(map[string]map[string]string),
		ready:       make(chan struct{}),
	}
}

// Market returns the book for a market id, or nil if it is not tracked.
func (c *Cache) Market(marketID string) *domain.MarketBook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.markets[marketID]
}

// EnsureRunner inserts a runner into a market book if missing, returning
// the state. This is the only structural step of the ingestion path, so
// it is the only part that takes the write lock.
func (c *Cache) EnsureRunner(marketID, selectionID string) *domain.RunnerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	mb := c.markets[marketID]
	if mb == nil {
		return nil
	}
	r := mb.Runners[selectionID]
	if r == nil {
		r = domain.NewRunnerState(selectionID)
		r.Name = c.runnerNames[selectionID]
		mb.Runners[selectionID] = r
	}
	return r
}

// IsTracked reports whether the market id is in the current-race set.
func (c *Cache) IsTracked(marketID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.raceIDs[marketID]
	return ok
}

// CurrentRaceIDs returns the current-race set as a slice.
func (c *Cache) CurrentRaceIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.raceIDs))
	for id := range c.raceIDs {
		ids = append(ids, id)
	}
	return ids
}

// SnapshotMarkets returns a shallow point-in-time copy of the market map.
// Books themselves are shared; the copy only decouples iteration from
// concurrent map mutation.
func (c *Cache) SnapshotMarkets() map[string]*domain.MarketBook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*domain.MarketBook, len(c.markets))
	for id, mb := range c.markets {
		out[id] = mb
	}
	return out
}

// ExportMarkets returns deep copies of every book, taken under the read
// lock. This is the boundary for external readers such as HTTP handlers:
// marshaling an export never races ingestion on live cache state.
func (c *Cache) ExportMarkets() map[string]*domain.MarketBook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*domain.MarketBook, len(c.markets))
	for id, mb := range c.markets {
		out[id] = mb.Clone()
	}
	return out
}

// ExportMarket returns a deep copy of one book, or nil if untracked.
func (c *Cache) ExportMarket(marketID string) *domain.MarketBook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mb := c.markets[marketID]
	if mb == nil {
		return nil
	}
	return mb.Clone()
}

// SnapshotStrategies returns a shallow copy of the strategy map.
func (c *Cache) SnapshotStrategies() map[string]*domain.Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*domain.Strategy, len(c.strategies))
	for name, s := range c.strategies {
		out[name] = s
	}
	return out
}

// SetStrategies replaces the live strategy set with exactly the given
// documents; strategies absent from the slice are dropped.
func (c *Cache) SetStrategies(strategies []*domain.Strategy) {
	next := make(map[string]*domain.Strategy, len(strategies))
	for _, s := range strategies {
		next[s.Name] = s
	}
	c.mu.Lock()
	c.strategies = next
	c.mu.Unlock()
}

// ApplyCatalogue replaces the current-race set with exactly the snapshot
// ids, refreshes per-market metadata and evicts books for markets that
// disappeared from the catalogue. This is the sole eviction rule.
func (c *Cache) ApplyCatalogue(entries []domain.CatalogueEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		next[e.MarketID] = struct{}{}
		mb := c.markets[e.MarketID]
		if mb == nil {
			mb = domain.NewMarketBook(e.MarketID)
			c.markets[e.MarketID] = mb
		}
		mb.StartTime = e.StartTime
		mb.Meta = e.Meta
		for _, rd := range e.Runners {
			c.runnerNames[rd.SelectionID] = rd.Name
			if r := mb.Runners[rd.SelectionID]; r != nil && r.Name == "" {
				r.Name = rd.Name
			}
		}
	}
	for id := range c.markets {
		if _, ok := next[id]; !ok {
			delete(c.markets, id)
			slog.Debug("market evicted", slog.String("market_id", id))
		}
	}
	c.raceIDs = next
}

// SetHorseInfo merges enrichment records keyed by normalized runner name.
func (c *Cache) SetHorseInfo(records map[string]map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, rec := range records {
		c.horseInfo[name] = rec
	}
}

// HorseInfo returns the enrichment record for a display name, or nil.
func (c *Cache) HorseInfo(displayName string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.horseInfo[domain.NormalizeRunnerName(displayName)]
}

// RunnerName resolves a selection id to its catalogue display name.
func (c *Cache) RunnerName(selectionID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runnerNames[selectionID]
}

// AppendOrder records an order against its market. The book's order list
// is structure shared with readers, so mutation happens under the lock.
func (c *Cache) AppendOrder(o *domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mb := c.markets[o.MarketID]; mb != nil {
		mb.Orders = append(mb.Orders, o)
	}
}

// SetNote records a per-strategy diagnostic against a market. An observer
// reading the cache sees why no bet was placed; this is first-class
// output of the engine, not debug state.
func (c *Cache) SetNote(marketID, strategy, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mb := c.markets[marketID]; mb != nil {
		mb.Notes[strategy] = note
	}
}

// Signal marks fresh data available, waking every Ready waiter.
func (c *Cache) Signal() {
	c.mu.Lock()
	close(c.ready)
	c.ready = make(chan struct{})
	c.mu.Unlock()
}

// Ready returns a channel closed on the next data-available signal.
func (c *Cache) Ready() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// RefreshClocks recomputes seconds-to-start for every market from its
// scheduled start time. Negative once the race has passed its start.
// The sweep holds the write lock so exported copies never tear a clock.
func (c *Cache) RefreshClocks(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, mb := range c.markets {
		if mb.StartTime.IsZero() {
			continue
		}
		mb.SecondsToStart = mb.StartTime.Sub(now).Seconds()
	}
}

// RunClock refreshes seconds-to-start on a fixed cadence until ctx ends.
func (c *Cache) RunClock(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.RefreshClocks(now.UTC())
		}
	}
}

// RunStrategyReload polls the store for active strategy documents on a
// fixed cadence, replacing the live set each time.
func (c *Cache) RunStrategyReload(ctx context.Context, src domain.StrategySource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		strategies, err := src.ActiveStrategies()
		if err != nil {
			slog.Warn("strategy reload failed", slog.Any("error", err))
		} else {
			c.SetStrategies(strategies)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
