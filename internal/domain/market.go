package domain

import "time"

// MarketMeta is the catalogue-sourced description of one market. It is
// replaced wholesale on every catalogue refresh.
type MarketMeta struct {
	MarketName   string  `json:"market_name"`
	MarketType   string  `json:"market_type"`
	EventType    string  `json:"event_type"`
	EventTitle   string  `json:"event_title"`
	Country      string  `json:"country"`
	Venue        string  `json:"venue"`
	TotalMatched float64 `json:"total_matched"`
}

// MarketBook is the per-market aggregate: runner states, market-wide
// overrun sums and the orders already issued against the market.
type MarketBook struct {
	MarketID  string                  `json:"market_id"`
	StartTime time.Time               `json:"start_time"`
	Meta      MarketMeta              `json:"meta"`
	Runners   map[string]*RunnerState `json:"runners"`

	// Overruns are Σ(1/price) over all runners with a non-zero value of
	// the given field. A fair two-way book sums to ~1.0.
	BackOverrun float64 `json:"back_overrun"`
	LayOverrun  float64 `json:"lay_overrun"`
	LastOverrun float64 `json:"last_overrun"`

	// SecondsToStart is positive before the scheduled start and goes
	// negative once the race has jumped.
	SecondsToStart float64 `json:"seconds_to_start"`

	// Orders placed against this market, shared by all runners.
	Orders []*Order `json:"orders,omitempty"`

	// Notes records the latest per-strategy diagnostic for this market,
	// e.g. why no bet was placed on the last pass.
	Notes map[string]string `json:"notes,omitempty"`
}

// NewMarketBook creates an empty book for a market id.
func NewMarketBook(marketID string) *MarketBook {
	return &MarketBook{
		MarketID: marketID,
		Runners:  make(map[string]*RunnerState),
		Notes:    make(map[string]string),
	}
}

// Clone returns a deep copy of the book for external readers, so a
// marshal or mutation on the copy never touches live cache state.
func (m *MarketBook) Clone() *MarketBook {
	c := *m
	c.Runners = make(map[string]*RunnerState, len(m.Runners))
	for id, r := range m.Runners {
		c.Runners[id] = r.Clone()
	}
	c.Orders = append([]*Order(nil), m.Orders...)
	c.Notes = make(map[string]string, len(m.Notes))
	for k, v := range m.Notes {
		c.Notes[k] = v
	}
	return &c
}

// RecomputeOverruns rebuilds the three reciprocal sums from the current
// runner scalars. Zero (absent) prices are skipped, never inverted.
func (m *MarketBook) RecomputeOverruns() {
	var back, lay, last float64
	for _, r := range m.Runners {
		if r.Back > 0 {
			back += 1 / r.Back
		}
		if r.Lay > 0 {
			lay += 1 / r.Lay
		}
		if r.Last > 0 {
			last += 1 / r.Last
		}
	}
	m.BackOverrun = back
	m.LayOverrun = lay
	m.LastOverrun = last
}

// OrderCount returns the number of orders a strategy has on this market.
// An empty strategy name counts every order.
func (m *MarketBook) OrderCount(strategy string) int {
	n := 0
	for _, o := range m.Orders {
		if strategy == "" || o.StrategyName == strategy {
			n++
		}
	}
	return n
}

// HasOrderFor reports whether any strategy already holds an order against
// the given runner. One live order per runner per market, across strategies.
func (m *MarketBook) HasOrderFor(selectionID string) bool {
	for _, o := range m.Orders {
		if o.SelectionID == selectionID {
			return true
		}
	}
	return false
}

// RunnerDesc is a catalogue runner entry.
type RunnerDesc struct {
	SelectionID string `json:"selection_id"`
	Name        string `json:"name"`
}

// CatalogueEntry is one market from the periodic catalogue snapshot. The
// set of entries in a snapshot defines the current-race set; markets not
// present are evicted from the cache.
type CatalogueEntry struct {
	MarketID  string       `json:"market_id"`
	StartTime time.Time    `json:"start_time"`
	Meta      MarketMeta   `json:"meta"`
	Runners   []RunnerDesc `json:"runners"`
}
