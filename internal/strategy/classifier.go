// Package strategy derives a discrete trading signal from an annotated
// series. The classifier is stateless across calls and inspects only the
// latest one or two candles.
package strategy

import (
	"fmt"

	"fnobot-go/internal/indicator"
	"fnobot-go/internal/risk"
	"fnobot-go/internal/signal"
)

// CrossoverMode picks how the EMA trend condition fires.
type CrossoverMode string

const (
	// CrossAbove fires while the fast EMA is on the signal side of the slow
	// EMA, so the signal repeats for as long as the trend holds.
	CrossAbove CrossoverMode = "above"
	// CrossEvent fires only on the candle where the fast EMA crossed the
	// slow EMA.
	CrossEvent CrossoverMode = "cross"
)

// Params holds the tunable knobs for the classifier.
type Params struct {
	Crossover      CrossoverMode `yaml:"crossover"`
	RSIOversold    float64       `yaml:"rsi_oversold"`
	RSIOverbought  float64       `yaml:"rsi_overbought"`
	RequirePattern bool          `yaml:"require_pattern"`
	RewardMultiple float64       `yaml:"reward_multiple"`
}

// DefaultParams returns the documented defaults: continuous "above" trend
// mode, 30/70 RSI bands, pattern tier off, 1.5x reward multiple.
func DefaultParams() Params {
	return Params{
		Crossover:      CrossAbove,
		RSIOversold:    30,
		RSIOverbought:  70,
		RewardMultiple: 1.5,
	}
}

func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.Crossover != CrossEvent {
		p.Crossover = CrossAbove
	}
	if p.RSIOversold <= 0 {
		p.RSIOversold = def.RSIOversold
	}
	if p.RSIOverbought <= 0 {
		p.RSIOverbought = def.RSIOverbought
	}
	if p.RewardMultiple <= 0 {
		p.RewardMultiple = def.RewardMultiple
	}
	return p
}

// Classifier turns annotated series into BUY/SELL/HOLD decisions.
type Classifier struct {
	params Params
}

// New builds a classifier, filling unset params with defaults.
func New(params Params) *Classifier {
	return &Classifier{params: params.withDefaults()}
}

// Evaluate classifies the latest candle of the annotated series. It fails
// closed: if any required indicator is still warming up, the result is HOLD
// with no levels, never a directional guess.
func (cl *Classifier) Evaluate(symbol string, a *indicator.Annotated) signal.Signal {
	hold := signal.Signal{Symbol: symbol, Direction: signal.Hold, Reason: "insufficient data"}
	if a == nil || len(a.Series) == 0 {
		return hold
	}
	last := len(a.Series) - 1
	latest := a.Series[last]
	hold.Ts = latest.Ts

	fast, okFast := a.FastEMA.At(last)
	slow, okSlow := a.SlowEMA.At(last)
	rsi, okRSI := a.RSI.At(last)
	macd, okMACD := a.MACD.At(last)
	macdSig, okMACDSig := a.MACDSignal.At(last)
	atr, okATR := a.ATR.At(last)
	if !okFast || !okSlow || !okRSI || !okMACD || !okMACDSig || !okATR {
		return hold
	}

	up, down, ok := cl.trend(a, last, fast, slow)
	if !ok {
		return hold
	}

	// Momentum: MACD ordering is the primary gate; an RSI band extreme
	// (oversold for buys, overbought for sells) confirms on its own.
	buyMomentum := macd > macdSig || rsi <= cl.params.RSIOversold
	sellMomentum := macd < macdSig || rsi >= cl.params.RSIOverbought

	direction := signal.Hold
	switch {
	case up && buyMomentum:
		direction = signal.Buy
	case down && sellMomentum:
		direction = signal.Sell
	}
	if direction == signal.Hold {
		hold.Reason = "trend and momentum disagree"
		return hold
	}

	if cl.params.RequirePattern {
		matched := direction == signal.Buy && a.BullishEngulfing.At(last) ||
			direction == signal.Sell && a.BearishEngulfing.At(last)
		if !matched {
			hold.Reason = "no confirming candlestick pattern"
			return hold
		}
	}

	levels := risk.Levels(direction, latest.Close, risk.PerUnit(atr, latest.Body()), cl.params.RewardMultiple)
	return signal.Signal{
		Symbol:    symbol,
		Direction: direction,
		Levels:    &levels,
		Reason: fmt.Sprintf("ema %.2f/%.2f macd %.2f/%.2f rsi %.1f mode=%s",
			fast, slow, macd, macdSig, rsi, cl.params.Crossover),
		Ts: latest.Ts,
	}
}

// trend evaluates the EMA condition at index last. In CrossEvent mode both
// the current and previous candle must have defined EMAs.
func (cl *Classifier) trend(a *indicator.Annotated, last int, fast, slow float64) (up, down, ok bool) {
	if cl.params.Crossover == CrossAbove {
		return fast > slow, fast < slow, true
	}
	prevFast, okFast := a.FastEMA.At(last - 1)
	prevSlow, okSlow := a.SlowEMA.At(last - 1)
	if !okFast || !okSlow {
		return false, false, false
	}
	up = prevFast <= prevSlow && fast > slow
	down = prevFast >= prevSlow && fast < slow
	return up, down, true
}
