package candle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawCandle is one undecoded time-series row from the venue. Empty marks a
// row the collaborator explicitly flagged as sentinel-empty; such rows are
// dropped instead of failing the batch.
type RawCandle struct {
	Timestamp string
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	Empty     bool
}

// TimestampParseError reports an unparsable timestamp, naming the row.
type TimestampParseError struct {
	Row   int
	Value string
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("row %d: unparsable timestamp %q", e.Row, e.Value)
}

// NumericParseError reports a non-numeric or missing OHLCV field.
type NumericParseError struct {
	Row   int
	Field string
	Value string
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("row %d: field %s: non-numeric value %q", e.Row, e.Field, e.Value)
}

// DuplicateTimestampError reports two rows sharing a timestamp; which one is
// authoritative is ambiguous, so the batch is rejected.
type DuplicateTimestampError struct {
	Ts time.Time
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("duplicate candle timestamp %s", e.Ts.Format(time.RFC3339))
}

// EmptySeriesError reports a batch with zero usable rows.
type EmptySeriesError struct{}

func (e *EmptySeriesError) Error() string { return "candle series is empty" }

// Venue layouts observed on the historical-data endpoint.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize converts raw rows into a canonical Series: timestamps parsed to
// UTC, OHLCV coerced, rows sorted ascending. Missing fields are hard errors
// unless the row is sentinel-empty; duplicates and empty batches are
// rejected rather than silently repaired.
func Normalize(rows []RawCandle) (Series, error) {
	series := make(Series, 0, len(rows))
	for i, raw := range rows {
		if raw.Empty {
			continue
		}
		c, err := normalizeRow(i, raw)
		if err != nil {
			return nil, err
		}
		series = append(series, c)
	}
	if len(series) == 0 {
		return nil, &EmptySeriesError{}
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Ts.Before(series[j].Ts) })
	for i := 1; i < len(series); i++ {
		if series[i].Ts.Equal(series[i-1].Ts) {
			return nil, &DuplicateTimestampError{Ts: series[i].Ts}
		}
	}
	return series, nil
}

func normalizeRow(i int, raw RawCandle) (Candle, error) {
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Candle{}, &TimestampParseError{Row: i, Value: raw.Timestamp}
	}

	c := Candle{Ts: ts}
	for _, field := range []struct {
		name  string
		value string
		dst   *float64
	}{
		{"open", raw.Open, &c.Open},
		{"high", raw.High, &c.High},
		{"low", raw.Low, &c.Low},
		{"close", raw.Close, &c.Close},
	} {
		v, err := parsePrice(field.value)
		if err != nil {
			return Candle{}, &NumericParseError{Row: i, Field: field.name, Value: field.value}
		}
		*field.dst = v
	}

	vol, err := parseVolume(raw.Volume)
	if err != nil {
		return Candle{}, &NumericParseError{Row: i, Field: "volume", Value: raw.Volume}
	}
	c.Volume = vol
	return c, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative price %q", s)
	}
	return v, nil
}

func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing")
	}
	// Venues report volume both as integers and as "12345.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative volume %q", s)
	}
	return int64(f), nil
}
