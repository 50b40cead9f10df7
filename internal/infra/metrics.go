package infra

import (
	"sync/atomic"
	"time"
)

// Metrics counts core events. All counters are atomic; a Metrics value
// is safe for concurrent use and usable at its zero value.
type Metrics struct {
	ticksApplied       atomic.Uint64
	ordersPlaced       atomic.Uint64
	rejections         atomic.Uint64
	strategyPasses     atomic.Uint64
	reconnects         atomic.Uint64
	catalogueRefreshes atomic.Uint64
}

// RecordTick records one applied market-change event.
func (m *Metrics) RecordTick() {
	m.ticksApplied.Add(1)
}

// RecordOrder records one emitted order.
func (m *Metrics) RecordOrder() {
	m.ordersPlaced.Add(1)
}

// RecordRejection records one recorded strategy rejection.
func (m *Metrics) RecordRejection() {
	m.rejections.Add(1)
}

// RecordPass records one completed strategy evaluation pass.
func (m *Metrics) RecordPass() {
	m.strategyPasses.Add(1)
}

// RecordReconnect records one streaming session start.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordCatalogueRefresh records one applied catalogue snapshot.
func (m *Metrics) RecordCatalogueRefresh() {
	m.catalogueRefreshes.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksApplied       uint64    `json:"ticks_applied"`
	OrdersPlaced       uint64    `json:"orders_placed"`
	Rejections         uint64    `json:"rejections"`
	StrategyPasses     uint64    `json:"strategy_passes"`
	Reconnects         uint64    `json:"reconnects"`
	CatalogueRefreshes uint64    `json:"catalogue_refreshes"`
	Timestamp          time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksApplied:       m.ticksApplied.Load(),
		OrdersPlaced:       m.ordersPlaced.Load(),
		Rejections:         m.rejections.Load(),
		StrategyPasses:     m.strategyPasses.Load(),
		Reconnects:         m.reconnects.Load(),
		CatalogueRefreshes: m.catalogueRefreshes.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksApplied.Store(0)
	m.ordersPlaced.Store(0)
	m.rejections.Store(0)
	m.strategyPasses.Store(0)
	m.reconnects.Store(0)
	m.catalogueRefreshes.Store(0)
}
