package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single bet request emitted by the strategy engine. It is
// appended to its market's order list and persisted exactly once per
// (strategy, runner); nothing in this core mutates it afterwards.
type Order struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	StrategyName string          `json:"strategy_name" gorm:"index"`
	MarketID     string          `json:"market_id" gorm:"index"`
	SelectionID  string          `json:"selection_id"`
	RunnerName   string          `json:"runner_name"`
	Side         string          `json:"side"` // BACK or LAY
	Size         decimal.Decimal `json:"size" gorm:"type:numeric"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric"` // ladder-adjusted
	Persistence  string          `json:"persistence_type"`

	// Gateway response, or dry-run placeholders in dummy mode.
	Status       string          `json:"status"`
	BetID        string          `json:"bet_id"`
	MatchedPrice decimal.Decimal `json:"matched_price" gorm:"type:numeric"`

	// Audit context captured at placement time.
	Venue          string    `json:"venue"`
	MarketName     string    `json:"market_name"`
	SecondsToStart float64   `json:"seconds_to_start"`
	PlacedAt       time.Time `json:"placed_at"`
}

const (
	SideBack = "BACK"
	SideLay  = "LAY"

	PersistenceLapse   = "LAPSE"
	PersistencePersist = "PERSIST"

	OrderStatusSuccess = "SUCCESS"
	OrderStatusFailure = "FAILURE"
	// OrderStatusDummy marks orders recorded by a dummy-mode strategy
	// without ever reaching the gateway.
	OrderStatusDummy = "DUMMY"
)
