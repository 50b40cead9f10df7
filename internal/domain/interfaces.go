package domain

import "context"

// PlacementReport is the gateway's answer to a placed order.
type PlacementReport struct {
	Status       string
	BetID        string
	MatchedPrice float64
}

// OrderGateway submits orders to the exchange. Implementations may block;
// callers must not hold the cache lock across a call.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, o *Order) (PlacementReport, error)
}

// OrderStore persists every emitted order exactly once.
type OrderStore interface {
	SaveOrder(o *Order) error
}

// StrategySource provides the live strategy documents eligible for
// evaluation (activation state "dummy" or "on").
type StrategySource interface {
	ActiveStrategies() ([]*Strategy, error)
}

// EnrichmentSource looks up third-party form records keyed by normalized
// runner name. Missing names are simply absent from the result.
type EnrichmentSource interface {
	LookupRunners(names []string) (map[string]map[string]string, error)
}
