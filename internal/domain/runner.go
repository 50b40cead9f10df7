package domain

import (
	"regexp"
	"strings"
)

// RollingCapacity is the bounded history per price series.
const RollingCapacity = 1000

// StatSummary is the derived view of one RollingStat, recomputed after
// every push so readers never see a stale average next to a fresh scalar.
type StatSummary struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RunnerState is the cached per-runner view of one market. Price scalars
// use 0 to mean "never observed"; the feed forward-fills them, so once a
// price is seen it never goes back to 0.
type RunnerState struct {
	SelectionID string `json:"selection_id"`
	Name        string `json:"name"`

	Back float64 `json:"back"`
	Lay  float64 `json:"lay"`
	Last float64 `json:"last"`

	// Cumulative traded volume across all updates.
	Volume float64 `json:"volume"`

	BackSeries *RollingStat `json:"back_values"`
	LaySeries  *RollingStat `json:"lay_values"`
	LastSeries *RollingStat `json:"last_values"`

	BackStat StatSummary `json:"back_stat"`
	LayStat  StatSummary `json:"lay_stat"`
	LastStat StatSummary `json:"last_stat"`

	// Info is the enrichment record keyed by field name, absent runners
	// simply have a nil map.
	Info map[string]string `json:"info,omitempty"`

	// Note records why the engine most recently declined to bet on this
	// runner. Diagnostic output, not consumed by any decision path.
	Note string `json:"note,omitempty"`
}

// NewRunnerState creates a runner with empty rolling windows.
func NewRunnerState(selectionID string) *RunnerState {
	return &RunnerState{
		SelectionID: selectionID,
		BackSeries:  NewRollingStat(RollingCapacity),
		LaySeries:   NewRollingStat(RollingCapacity),
		LastSeries:  NewRollingStat(RollingCapacity),
	}
}

// Clone returns a copy with independent rolling windows. The Info map is
// shared: enrichment records are replaced wholesale, never mutated in place.
func (r *RunnerState) Clone() *RunnerState {
	c := *r
	c.BackSeries = r.BackSeries.Clone()
	c.LaySeries = r.LaySeries.Clone()
	c.LastSeries = r.LastSeries.Clone()
	return &c
}

// PriceField selects a price scalar by strategy key ("back", "lay", "last").
func (r *RunnerState) PriceField(field string) float64 {
	switch field {
	case PriceFieldBack:
		return r.Back
	case PriceFieldLay:
		return r.Lay
	default:
		return r.Last
	}
}

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s+`)

// NormalizeRunnerName strips the leading saddle-cloth ordinal ("1. ") and
// lowercases the rest, matching how enrichment records are keyed.
func NormalizeRunnerName(name string) string {
	name = strings.TrimSpace(name)
	return strings.ToLower(ordinalPrefix.ReplaceAllString(name, ""))
}
