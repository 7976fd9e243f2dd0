package indicator

import "fnobot-go/internal/candle"

// Set selects which indicators Annotate computes and with what parameters.
type Set struct {
	FastEMA    int  `yaml:"fast_ema"`
	SlowEMA    int  `yaml:"slow_ema"`
	RSIPeriod  int  `yaml:"rsi_period"`
	MACDFast   int  `yaml:"macd_fast"`
	MACDSlow   int  `yaml:"macd_slow"`
	MACDSignal int  `yaml:"macd_signal"`
	ATRPeriod  int  `yaml:"atr_period"`
	Patterns   bool `yaml:"patterns"`
}

// DefaultSet mirrors the usual FnO dashboard parameters: EMA 5/20 trend
// pair, RSI 14, MACD 12/26/9, ATR 14, engulfing flags on.
func DefaultSet() Set {
	return Set{
		FastEMA:    5,
		SlowEMA:    20,
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		ATRPeriod:  14,
		Patterns:   true,
	}
}

func (s Set) withDefaults() Set {
	def := DefaultSet()
	if s.FastEMA <= 0 {
		s.FastEMA = def.FastEMA
	}
	if s.SlowEMA <= 0 {
		s.SlowEMA = def.SlowEMA
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = def.RSIPeriod
	}
	if s.MACDFast <= 0 {
		s.MACDFast = def.MACDFast
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = def.MACDSlow
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = def.MACDSignal
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = def.ATRPeriod
	}
	return s
}

// Annotated carries the source series plus its derived indicator columns.
// The series itself is never modified.
type Annotated struct {
	Series candle.Series
	Set    Set

	FastEMA    Column
	SlowEMA    Column
	RSI        Column
	MACD       Column
	MACDSignal Column
	ATR        Column

	BullishEngulfing Pattern
	BearishEngulfing Pattern
}

// Annotate computes the configured indicator columns over the series. Each
// indicator reads only the prefix up to the current index; independent
// columns share nothing, so replays are deterministic.
func Annotate(series candle.Series, set Set) *Annotated {
	set = set.withDefaults()
	a := &Annotated{
		Series:  series,
		Set:     set,
		FastEMA: EMA(series, set.FastEMA),
		SlowEMA: EMA(series, set.SlowEMA),
		RSI:     RSI(series, set.RSIPeriod),
		ATR:     ATR(series, set.ATRPeriod),
	}
	a.MACD, a.MACDSignal = MACD(series, set.MACDFast, set.MACDSlow, set.MACDSignal)
	if set.Patterns {
		a.BullishEngulfing, a.BearishEngulfing = Engulfing(series)
	}
	return a
}
