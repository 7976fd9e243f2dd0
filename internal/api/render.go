package api

import (
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/indicator"
)

type contractJSON struct {
	Token         string `json:"token"`
	TradingSymbol string `json:"trading_symbol"`
	Segment       string `json:"segment"`
	Kind          string `json:"kind"`
	Expiry        string `json:"expiry,omitempty"`
	Strike        string `json:"strike,omitempty"`
	LotSize       int    `json:"lot_size,omitempty"`
}

func renderContract(rec catalog.Record) contractJSON {
	out := contractJSON{
		Token:         rec.Token,
		TradingSymbol: rec.TradingSymbol,
		Segment:       string(rec.Segment),
		Kind:          string(rec.Kind),
		LotSize:       rec.LotSize,
	}
	if rec.HasExpiry() {
		out.Expiry = rec.Expiry.Format("2006-01-02")
	}
	if rec.Kind.Option() {
		out.Strike = rec.Strike.String()
	}
	return out
}

// renderColumn turns an indicator column into a nullable array so charting
// clients see the warm-up prefix as gaps, not zeros.
func renderColumn(col indicator.Column) []*float64 {
	out := make([]*float64, col.Len())
	for i := range out {
		if v, ok := col.At(i); ok {
			value := v
			out[i] = &value
		}
	}
	return out
}

func renderIndicators(a *indicator.Annotated) map[string][]*float64 {
	return map[string][]*float64{
		"ema_fast":    renderColumn(a.FastEMA),
		"ema_slow":    renderColumn(a.SlowEMA),
		"rsi":         renderColumn(a.RSI),
		"macd":        renderColumn(a.MACD),
		"macd_signal": renderColumn(a.MACDSignal),
		"atr":         renderColumn(a.ATR),
	}
}

func renderPatterns(a *indicator.Annotated) map[string][]bool {
	if !a.Set.Patterns {
		return nil
	}
	n := len(a.Series)
	bullish := make([]bool, n)
	bearish := make([]bool, n)
	for i := 0; i < n; i++ {
		bullish[i] = a.BullishEngulfing.At(i)
		bearish[i] = a.BearishEngulfing.At(i)
	}
	return map[string][]bool{
		"bullish_engulfing": bullish,
		"bearish_engulfing": bearish,
	}
}
