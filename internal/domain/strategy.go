package domain

import "github.com/shopspring/decimal"

// Strategy activation states. "dummy" runs the full decision path but
// records placeholder orders instead of calling the gateway.
const (
	StrategyOff   = "off"
	StrategyDummy = "dummy"
	StrategyOn    = "on"
)

// Price-field keys a strategy can rank and price off.
const (
	PriceFieldBack = "back"
	PriceFieldLay  = "lay"
	PriceFieldLast = "last"
)

// Race-type filters. Harness races are detected by a substring heuristic
// on the event title ("trot" or "pace").
const (
	RaceTypeAny     = ""
	RaceTypeHarness = "harness"
	RaceTypeFlat    = "flat"
)

// MissingInfoRisk lets a strategy bet on runners whose enrichment record
// lacks a conditioned field; any other value rejects such runners.
const MissingInfoRisk = "risk"

// Condition is a named inclusive numeric range matched against one
// enrichment field. Nil bounds are open.
type Condition struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Matches reports whether v satisfies the range, min <= v <= max.
func (c Condition) Matches(v float64) bool {
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

// Strategy is one externally configured betting strategy. Read-only to
// the core; documents are reloaded from the store on a fixed cadence.
type Strategy struct {
	Name   string `json:"strategy_name"`
	Active string `json:"active"` // off, dummy, on

	Side        string          `json:"side"` // BACK or LAY
	Size        decimal.Decimal `json:"size"`
	Persistence string          `json:"persistence_type"`

	// PriceStrategy selects which scalar to rank and price off.
	PriceStrategy string  `json:"price_strategy"`
	PriceMin      float64 `json:"price_min"`
	PriceMax      float64 `json:"price_max"`

	// MaxRunners bounds orders per market for this strategy and sizes
	// the ranked candidate set. Loaders floor it at 1, so a document
	// that omits the field bets a single runner.
	MaxRunners int `json:"max_runners"`
	// RankDesc favors the highest value of the selected price field;
	// false favors the lowest.
	RankDesc bool `json:"rank_desc"`

	Countries  []string `json:"countries"`
	MarketType string   `json:"market_type"`
	EventType  string   `json:"event_type"`
	RaceType   string   `json:"race_type"`

	// Acceptance window on seconds-to-start, inclusive.
	TimeToStartMin float64 `json:"time_to_start_min"`
	TimeToStartMax float64 `json:"time_to_start_max"`

	BackOverrun Condition `json:"back_overrun"`
	LayOverrun  Condition `json:"lay_overrun"`
	LastOverrun Condition `json:"last_overrun"`

	// MissingInfo: "risk" proceeds past absent enrichment fields.
	MissingInfo string `json:"missing_info"`

	// Conditions are matched against enrichment fields by name.
	Conditions map[string]Condition `json:"conditions,omitempty"`
}

// IsActive reports whether the strategy should be evaluated at all.
func (s *Strategy) IsActive() bool {
	return s.Active == StrategyDummy || s.Active == StrategyOn
}

// AllowsCountry checks country membership; an empty list allows all.
func (s *Strategy) AllowsCountry(country string) bool {
	if len(s.Countries) == 0 {
		return true
	}
	for _, c := range s.Countries {
		if c == country {
			return true
		}
	}
	return false
}
