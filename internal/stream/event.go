package stream

// PricePoint is one (price, volume) level of an exchange ladder.
type PricePoint struct {
	Price  float64
	Volume float64
}

// RunnerChange carries the per-runner deltas of one market change. Any
// ladder may be empty; absent fields forward-fill from the cache.
type RunnerChange struct {
	SelectionID string
	Back        []PricePoint // best available to back, best level first
	Lay         []PricePoint // best available to lay, best level first
	Traded      []PricePoint // traded (price, volume) pairs
}

// MarketChange is one raw market-update event from the stream.
type MarketChange struct {
	MarketID    string
	PublishTime int64 // unix millis
	Runners     []RunnerChange
}

// Consumer receives market changes from a streaming session. The session
// transport invokes it for every decoded event.
type Consumer interface {
	ApplyMarketChange(mc *MarketChange)
}

// VWAP computes the volume-weighted average price of a ladder. ok is
// false when total volume is zero, never a division by zero.
func VWAP(levels []PricePoint) (vwap float64, ok bool) {
	var sum, vol float64
	for _, l := range levels {
		sum += l.Price * l.Volume
		vol += l.Volume
	}
	if vol == 0 {
		return 0, false
	}
	return sum / vol, true
}
