package engine

import (
	"github.com/shopspring/decimal"

	"racebot/internal/domain"
)

// ladderBand is one (start, end, step) run of the exchange price ladder.
// Valid prices are start, start+step, ... up to end; the next band picks
// up one step above the previous band's end.
type ladderBand struct {
	start decimal.Decimal
	end   decimal.Decimal
	step  decimal.Decimal
}

func band(start, end, step string) ladderBand {
	return ladderBand{
		start: decimal.RequireFromString(start),
		end:   decimal.RequireFromString(end),
		step:  decimal.RequireFromString(step),
	}
}

// ladderBands is the exchange tick table, ascending.
var ladderBands = []ladderBand{
	band("1.01", "2", "0.01"),
	band("2.02", "3", "0.02"),
	band("3.05", "4", "0.05"),
	band("4.1", "6", "0.1"),
	band("6.2", "10", "0.2"),
	band("10.5", "20", "0.5"),
	band("21", "30", "1"),
	band("32", "50", "2"),
	band("55", "100", "5"),
	band("110", "1000", "10"),
}

// AdjustPrice snaps an arbitrary price to the smallest valid ladder price
// that is >= the input, rounded to 2 decimal places. Never rounds down.
// Inputs above the ladder maximum return ErrPriceOutOfRange.
func AdjustPrice(price decimal.Decimal) (decimal.Decimal, error) {
	for _, b := range ladderBands {
		if price.GreaterThan(b.end) {
			continue
		}
		if price.LessThanOrEqual(b.start) {
			return b.start.Round(2), nil
		}
		steps := price.Sub(b.start).Div(b.step).Ceil()
		return b.start.Add(steps.Mul(b.step)).Round(2), nil
	}
	return decimal.Zero, domain.ErrPriceOutOfRange
}

// ClampPrice bounds a price into [min, max]; a zero max is open-ended.
func ClampPrice(price, min, max float64) float64 {
	if min > 0 && price < min {
		return min
	}
	if max > 0 && price > max {
		return max
	}
	return price
}
