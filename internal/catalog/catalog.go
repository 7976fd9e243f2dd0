// Package catalog loads and normalizes the venue instrument master into an
// immutable, queryable contract table.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Segment identifies the exchange segment a contract trades on.
type Segment string

const (
	// SegmentCash is the equity cash segment.
	SegmentCash Segment = "NSE"
	// SegmentFnO is the futures and options segment.
	SegmentFnO Segment = "NFO"
)

// Kind identifies the instrument type of a contract.
type Kind string

const (
	KindEquity     Kind = "EQ"
	KindIndex      Kind = "INDEX"
	KindFuture     Kind = "FUT"
	KindCallOption Kind = "CE"
	KindPutOption  Kind = "PE"
)

// Option reports whether the kind carries a strike price.
func (k Kind) Option() bool { return k == KindCallOption || k == KindPutOption }

// Derivative reports whether the kind carries an expiry.
func (k Kind) Derivative() bool { return k == KindFuture || k.Option() }

// RawRow is one undecoded instrument-master row as published by the venue.
// Field names follow the scrip master schema.
type RawRow struct {
	Token          string `json:"token"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Expiry         string `json:"expiry"`
	Strike         string `json:"strike"`
	LotSize        string `json:"lotsize"`
	InstrumentType string `json:"instrumenttype"`
	ExchSeg        string `json:"exch_seg"`
	TickSize       string `json:"tick_size"`
}

// Record is one normalized, immutable contract row.
type Record struct {
	Token         string
	TradingSymbol string
	Root          string
	Segment       Segment
	Kind          Kind
	Expiry        time.Time // zero for cash instruments
	Strike        decimal.Decimal
	LotSize       int
}

// HasExpiry reports whether the record carries an expiry date.
func (r Record) HasExpiry() bool { return !r.Expiry.IsZero() }

// MalformedCatalogError reports a raw row that could not be normalized.
type MalformedCatalogError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedCatalogError) Error() string {
	return fmt.Sprintf("malformed catalog row %d: field %q: %s", e.Row, e.Field, e.Reason)
}

// Catalog is an ordered, read-only collection of contract records indexed by
// normalized root symbol. Build a new one via Load; never mutate in place.
type Catalog struct {
	records []Record
	byRoot  map[string][]int
	loaded  time.Time
}

// Len returns the number of records loaded.
func (c *Catalog) Len() int { return len(c.records) }

// LoadedAt returns when this catalog snapshot was built.
func (c *Catalog) LoadedAt() time.Time { return c.loaded }

// Records returns the full record slice in load order. Callers must treat it
// as read-only.
func (c *Catalog) Records() []Record { return c.records }

// ByRoot returns all records whose root symbol equals the normalized query
// root, in load order. Matching is exact: "NIFTY" never returns "NIFTYIT".
func (c *Catalog) ByRoot(root string) []Record {
	idx := c.byRoot[Normalize(root)]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = c.records[j]
	}
	return out
}

// Normalize canonicalizes a symbol field for matching: trimmed, upper-cased.
func Normalize(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Load normalizes raw instrument rows into a Catalog. The whole load either
// succeeds or fails; a *MalformedCatalogError names the first offending row
// and field. Rows are kept in input order.
func Load(rows []RawRow) (*Catalog, error) {
	records := make([]Record, 0, len(rows))
	byRoot := make(map[string][]int)
	for i, raw := range rows {
		rec, err := normalizeRow(i, raw)
		if err != nil {
			return nil, err
		}
		byRoot[rec.Root] = append(byRoot[rec.Root], len(records))
		records = append(records, rec)
	}
	return &Catalog{records: records, byRoot: byRoot, loaded: time.Now().UTC()}, nil
}

func normalizeRow(i int, raw RawRow) (Record, error) {
	rec := Record{
		Token:         strings.TrimSpace(raw.Token),
		TradingSymbol: Normalize(raw.Symbol),
		Root:          Normalize(raw.Name),
	}
	if rec.Token == "" {
		return Record{}, &MalformedCatalogError{Row: i, Field: "token", Reason: "empty"}
	}
	if rec.TradingSymbol == "" {
		return Record{}, &MalformedCatalogError{Row: i, Field: "symbol", Reason: "empty"}
	}
	if rec.Root == "" {
		return Record{}, &MalformedCatalogError{Row: i, Field: "name", Reason: "empty"}
	}

	seg, err := parseSegment(raw.ExchSeg)
	if err != nil {
		return Record{}, &MalformedCatalogError{Row: i, Field: "exch_seg", Reason: err.Error()}
	}
	rec.Segment = seg

	rec.Kind = parseKind(raw.InstrumentType, rec.TradingSymbol)

	if rec.Kind.Derivative() {
		expiry, err := parseExpiry(raw.Expiry)
		if err != nil {
			return Record{}, &MalformedCatalogError{Row: i, Field: "expiry", Reason: err.Error()}
		}
		rec.Expiry = expiry
	}

	if rec.Kind.Option() {
		strike, err := parseStrike(raw.Strike)
		if err != nil {
			return Record{}, &MalformedCatalogError{Row: i, Field: "strike", Reason: err.Error()}
		}
		rec.Strike = strike
	}

	if lot := strings.TrimSpace(raw.LotSize); lot != "" {
		n, err := parseLotSize(lot)
		if err != nil {
			return Record{}, &MalformedCatalogError{Row: i, Field: "lotsize", Reason: err.Error()}
		}
		rec.LotSize = n
	}
	return rec, nil
}

func parseSegment(s string) (Segment, error) {
	switch Normalize(s) {
	case "NSE", "BSE":
		return SegmentCash, nil
	case "NFO", "BFO":
		return SegmentFnO, nil
	case "":
		return "", fmt.Errorf("empty")
	default:
		return "", fmt.Errorf("unknown segment %q", s)
	}
}

// parseKind maps the venue instrument type to a Kind. Option masters mark
// rows as OPTIDX/OPTSTK and encode call/put in the trading symbol suffix.
func parseKind(instrumentType, tradingSymbol string) Kind {
	switch Normalize(instrumentType) {
	case "FUTIDX", "FUTSTK", "FUT":
		return KindFuture
	case "OPTIDX", "OPTSTK", "OPT":
		if strings.HasSuffix(tradingSymbol, "PE") {
			return KindPutOption
		}
		return KindCallOption
	case "CE":
		return KindCallOption
	case "PE":
		return KindPutOption
	case "AMXIDX", "INDEX", "IDX":
		return KindIndex
	default:
		return KindEquity
	}
}

var expiryLayouts = []string{"02Jan2006", "2006-01-02", "02-01-2006"}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	// Scrip master dates arrive fully upper-cased (30JAN2025).
	titled := s
	if len(s) == len("02JAN2006") {
		titled = s[:2] + strings.ToUpper(s[2:3]) + strings.ToLower(s[3:5]) + s[5:]
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, titled); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// parseStrike reads the venue strike, published in paise, as an exact rupee
// decimal (divide by 100, no float round-trip).
func parseStrike(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("non-numeric strike %q", s)
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("non-positive strike %q", s)
	}
	return d.Div(decimal.NewFromInt(100)), nil
}

func parseLotSize(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("non-numeric lot size %q", s)
	}
	return int(d.IntPart()), nil
}
