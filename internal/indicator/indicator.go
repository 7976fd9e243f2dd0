// Package indicator computes streaming technical indicators over an
// immutable candle series. Every indicator is a pure function of the series
// prefix up to the current index; warm-up values are reported as
// not-available, never as zero.
package indicator

import "fnobot-go/internal/candle"

// Column is an indicator output parallel to the series, with an explicit
// availability mask for the warm-up prefix.
type Column struct {
	values []float64
	ok     []bool
}

func newColumn(n int) Column {
	return Column{values: make([]float64, n), ok: make([]bool, n)}
}

// Len returns the column length (equal to the series length).
func (c Column) Len() int { return len(c.values) }

// At returns the value at index i and whether it is available yet.
func (c Column) At(i int) (float64, bool) {
	if i < 0 || i >= len(c.values) {
		return 0, false
	}
	return c.values[i], c.ok[i]
}

// Last returns the final value and its availability.
func (c Column) Last() (float64, bool) { return c.At(len(c.values) - 1) }

// EMA computes the exponential moving average of closes with
// alpha = 2/(span+1), seeded by the first close. The recursion runs from the
// first candle but the column only becomes available once span candles have
// been seen.
func EMA(series candle.Series, span int) Column {
	return emaOver(series.Closes(), span)
}

func emaOver(values []float64, span int) Column {
	col := newColumn(len(values))
	if len(values) == 0 || span <= 0 {
		return col
	}
	alpha := 2.0 / float64(span+1)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		col.values[i] = ema
		col.ok[i] = i >= span-1
	}
	return col
}

// RSI computes the relative strength index over a trailing window of period
// close-to-close changes. Undefined until period changes exist; a window
// with zero average loss reads as 100 rather than dividing by zero.
func RSI(series candle.Series, period int) Column {
	col := newColumn(len(series))
	if len(series) == 0 || period <= 0 {
		return col
	}
	gains := make([]float64, len(series))
	losses := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		delta := series[i].Close - series[i-1].Close
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	var gainSum, lossSum float64
	for i := 1; i < len(series); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			col.values[i] = 100
		} else {
			rs := avgGain / avgLoss
			col.values[i] = 100 - 100/(1+rs)
		}
		col.ok[i] = true
	}
	return col
}

// MACD computes the fast/slow EMA difference and its signal smoothing.
// Availability inherits the EMA warm-ups: the line needs the slow span, the
// signal additionally needs the signal span over the line.
func MACD(series candle.Series, fast, slow, signal int) (line, signalLine Column) {
	n := len(series)
	line, signalLine = newColumn(n), newColumn(n)
	if n == 0 {
		return line, signalLine
	}
	fastEMA := EMA(series, fast)
	slowEMA := EMA(series, slow)
	for i := 0; i < n; i++ {
		line.values[i] = fastEMA.values[i] - slowEMA.values[i]
		line.ok[i] = fastEMA.ok[i] && slowEMA.ok[i]
	}

	start := slow - 1
	if start < 0 || start >= n {
		return line, signalLine
	}
	smoothed := emaOver(line.values[start:], signal)
	for i := start; i < n; i++ {
		signalLine.values[i] = smoothed.values[i-start]
		signalLine.ok[i] = line.ok[i] && smoothed.ok[i-start]
	}
	return line, signalLine
}

// ATR computes the rolling mean of the true range over period candles. The
// first candle has no previous close, so its true range is high minus low.
func ATR(series candle.Series, period int) Column {
	col := newColumn(len(series))
	if len(series) == 0 || period <= 0 {
		return col
	}
	tr := make([]float64, len(series))
	for i, c := range series {
		rangeHL := c.High - c.Low
		if i == 0 {
			tr[i] = rangeHL
			continue
		}
		prevClose := series[i-1].Close
		tr[i] = max3(rangeHL, abs(c.High-prevClose), abs(c.Low-prevClose))
	}
	var sum float64
	for i := range tr {
		sum += tr[i]
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			col.values[i] = sum / float64(period)
			col.ok[i] = true
		}
	}
	return col
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
