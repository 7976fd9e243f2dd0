// Package risk derives the protective price levels that bound a directional
// signal's exit range.
package risk

import "fnobot-go/internal/signal"

// PerUnit sizes the risk of one unit as the larger of the average true
// range and the latest candle body, so a quiet ATR never places the stop
// inside the candle that triggered the signal.
func PerUnit(atr, body float64) float64 {
	if body > atr {
		return body
	}
	return atr
}

// Levels computes stop and target from a single entry reference. Stop sits
// one risk unit against the trade; target sits rewardMultiple risk units
// with it, keeping risk:reward internally consistent.
func Levels(direction signal.Direction, entry, perUnit, rewardMultiple float64) signal.Levels {
	if direction == signal.Sell {
		return signal.Levels{
			Entry:  entry,
			Stop:   entry + perUnit,
			Target: entry - perUnit*rewardMultiple,
		}
	}
	return signal.Levels{
		Entry:  entry,
		Stop:   entry - perUnit,
		Target: entry + perUnit*rewardMultiple,
	}
}
