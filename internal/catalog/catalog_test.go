package catalog

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func optionRow(symbol, name, expiry, strike string) RawRow {
	return RawRow{
		Token:          "t-" + symbol,
		Symbol:         symbol,
		Name:           name,
		Expiry:         expiry,
		Strike:         strike,
		LotSize:        "50",
		InstrumentType: "OPTIDX",
		ExchSeg:        "NFO",
	}
}

func TestLoadNormalizesFields(t *testing.T) {
	cat, err := Load([]RawRow{
		optionRow(" nifty30jan2522000ce ", " nifty ", "30JAN2025", "2200000.000000"),
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", cat.Len())
	}
	rec := cat.Records()[0]
	if rec.TradingSymbol != "NIFTY30JAN2522000CE" {
		t.Fatalf("unexpected trading symbol %q", rec.TradingSymbol)
	}
	if rec.Root != "NIFTY" {
		t.Fatalf("unexpected root %q", rec.Root)
	}
	if rec.Kind != KindCallOption {
		t.Fatalf("unexpected kind %q", rec.Kind)
	}
	want := time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC)
	if !rec.Expiry.Equal(want) {
		t.Fatalf("unexpected expiry %v", rec.Expiry)
	}
	// 2200000 paise = 22000 rupees, exactly.
	if rec.Strike.String() != "22000" {
		t.Fatalf("unexpected strike %s", rec.Strike)
	}
	if rec.LotSize != 50 {
		t.Fatalf("unexpected lot size %d", rec.LotSize)
	}
}

func TestLoadPutSuffix(t *testing.T) {
	cat, err := Load([]RawRow{optionRow("BANKNIFTY30JAN2548000PE", "BANKNIFTY", "30JAN2025", "4800000")})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cat.Records()[0].Kind; got != KindPutOption {
		t.Fatalf("expected put option, got %q", got)
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	cases := map[string]RawRow{
		"empty token":    {Symbol: "NIFTY", Name: "NIFTY", ExchSeg: "NSE"},
		"empty segment":  {Token: "1", Symbol: "NIFTY", Name: "NIFTY"},
		"bad expiry":     optionRow("NIFTYXCE", "NIFTY", "notadate", "100"),
		"missing strike": optionRow("NIFTYXCE", "NIFTY", "30JAN2025", ""),
		"text strike":    optionRow("NIFTYXCE", "NIFTY", "30JAN2025", "abc"),
	}
	for name, row := range cases {
		if _, err := Load([]RawRow{row}); err == nil {
			t.Fatalf("%s: expected error", name)
		} else {
			var malformed *MalformedCatalogError
			if !errors.As(err, &malformed) {
				t.Fatalf("%s: expected MalformedCatalogError, got %v", name, err)
			}
		}
	}
}

func TestByRootExactMatch(t *testing.T) {
	cat, err := Load([]RawRow{
		optionRow("NIFTY30JAN2522000CE", "NIFTY", "30JAN2025", "2200000"),
		optionRow("NIFTYIT30JAN2540000CE", "NIFTYIT", "30JAN2025", "4000000"),
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	recs := cat.ByRoot("nifty")
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 NIFTY record, got %d", len(recs))
	}
	if recs[0].Root != "NIFTY" {
		t.Fatalf("NIFTY lookup leaked %q", recs[0].Root)
	}
	if got := cat.ByRoot("FINNIFTY"); got != nil {
		t.Fatalf("expected nil for unknown root, got %d records", len(got))
	}
}

func TestLoadCSV(t *testing.T) {
	data := strings.Join([]string{
		"token,symbol,name,expiry,strike,lotsize,instrumenttype,exch_seg,tick_size",
		"26009,NIFTY30JAN25FUT,NIFTY,30JAN2025,-1.000000,50,FUTIDX,NFO,5",
		"2885,RELIANCE-EQ,RELIANCE,,,1,,NSE,5",
	}, "\n")
	cat, err := LoadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", cat.Len())
	}
	fut := cat.Records()[0]
	if fut.Kind != KindFuture || !fut.HasExpiry() {
		t.Fatalf("unexpected future record %+v", fut)
	}
	eq := cat.Records()[1]
	if eq.Kind != KindEquity || eq.Segment != SegmentCash || eq.HasExpiry() {
		t.Fatalf("unexpected equity record %+v", eq)
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	data := "token,symbol,expiry\n1,NIFTY,30JAN2025\n"
	if _, err := LoadCSV(strings.NewReader(data)); err == nil {
		t.Fatalf("expected error for missing name column")
	}
}

func TestStoreReplaceAndSnapshot(t *testing.T) {
	store := NewStore()
	if _, err := store.Snapshot(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	first, err := Load([]RawRow{optionRow("NIFTY30JAN2522000CE", "NIFTY", "30JAN2025", "2200000")})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	store.Replace(first)

	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap != first {
		t.Fatalf("expected first catalog snapshot")
	}

	second, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	store.Replace(second)
	if snap.Len() != 1 {
		t.Fatalf("held snapshot mutated by reload")
	}
	latest, _ := store.Snapshot()
	if latest != second {
		t.Fatalf("expected reload to swap snapshot")
	}
}
