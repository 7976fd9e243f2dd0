package indicator

import "fnobot-go/internal/candle"

// Pattern holds per-candle boolean flags for a two-candle pattern, defined
// from index 1.
type Pattern struct {
	flags []bool
}

// At reports whether the pattern fired at index i.
func (p Pattern) At(i int) bool {
	if i < 0 || i >= len(p.flags) {
		return false
	}
	return p.flags[i]
}

// Last reports whether the pattern fired on the latest candle.
func (p Pattern) Last() bool { return p.At(len(p.flags) - 1) }

// Engulfing computes bullish and bearish engulfing flags. A candle engulfs
// the previous one only when the body directions are opposite and the later
// body strictly contains the earlier open/close range; strict inequalities
// keep doji candles from flagging.
func Engulfing(series candle.Series) (bullish, bearish Pattern) {
	bullish = Pattern{flags: make([]bool, len(series))}
	bearish = Pattern{flags: make([]bool, len(series))}
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		bullish.flags[i] = prev.Bearish() && cur.Bullish() &&
			cur.Open < prev.Close && cur.Close > prev.Open
		bearish.flags[i] = prev.Bullish() && cur.Bearish() &&
			cur.Open > prev.Close && cur.Close < prev.Open
	}
	return bullish, bearish
}
