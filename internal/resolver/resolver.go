// Package resolver deterministically selects exactly one contract from a
// catalog snapshot for a query, or reports a typed failure.
package resolver

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fnobot-go/internal/catalog"
)

// StrikePolicy selects how an option strike is matched.
type StrikePolicy string

const (
	// StrikeExact requires the queried strike to exist.
	StrikeExact StrikePolicy = "exact"
	// StrikeNearest picks the strike closest to the reference price, ties
	// broken toward the lower strike.
	StrikeNearest StrikePolicy = "nearest"
)

// Query describes the contract the caller wants resolved.
type Query struct {
	Root      string
	Kind      catalog.Kind
	Expiry    *time.Time // nil selects the nearest upcoming expiry
	Strike    StrikePolicy
	Exact     decimal.Decimal // strike for StrikeExact
	Reference decimal.Decimal // underlying price for StrikeNearest
}

// Resolved is the single contract chosen for a query. Warning is non-nil
// when dirty data forced a load-order tie break; callers decide whether that
// is fatal.
type Resolved struct {
	Contract catalog.Record
	Warning  *DuplicateContractWarning
}

// SymbolNotFoundError reports that no contract matched the root symbol and
// kind (after expiry filtering, for derivatives).
type SymbolNotFoundError struct {
	Root string
	Kind catalog.Kind
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("no %s contract found for %q", e.Kind, e.Root)
}

// NoMatchingExpiryError reports that candidates existed but none carried the
// requested expiry.
type NoMatchingExpiryError struct {
	Root   string
	Expiry time.Time
}

func (e *NoMatchingExpiryError) Error() string {
	return fmt.Sprintf("no %s contract expiring %s", e.Root, e.Expiry.Format("2006-01-02"))
}

// NoMatchingStrikeError reports that the selected expiry has no contract at
// the requested strike.
type NoMatchingStrikeError struct {
	Root   string
	Strike decimal.Decimal
}

func (e *NoMatchingStrikeError) Error() string {
	return fmt.Sprintf("no %s contract at strike %s", e.Root, e.Strike)
}

// DuplicateContractWarning reports that more than one row survived every
// filter; the first row in catalog load order was chosen.
type DuplicateContractWarning struct {
	TradingSymbol string
	Count         int
}

func (w *DuplicateContractWarning) Error() string {
	return fmt.Sprintf("%d duplicate rows for %s, kept first in load order", w.Count, w.TradingSymbol)
}

// Resolve picks exactly one contract for the query against a catalog
// snapshot as of the given date. It never mutates the catalog and is safe to
// call concurrently.
func Resolve(cat *catalog.Catalog, q Query, asOf time.Time) (Resolved, error) {
	asOf = dateOnly(asOf)

	candidates := filterKind(cat.ByRoot(q.Root), q.Kind)
	if q.Kind.Derivative() {
		candidates = filterLive(candidates, asOf)
	}
	if len(candidates) == 0 {
		return Resolved{}, &SymbolNotFoundError{Root: catalog.Normalize(q.Root), Kind: q.Kind}
	}

	if q.Kind.Derivative() {
		var err error
		candidates, err = selectExpiry(candidates, q)
		if err != nil {
			return Resolved{}, err
		}
	}

	if q.Kind.Option() {
		var err error
		candidates, err = selectStrike(candidates, q)
		if err != nil {
			return Resolved{}, err
		}
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		return Resolved{
			Contract: chosen,
			Warning:  &DuplicateContractWarning{TradingSymbol: chosen.TradingSymbol, Count: len(candidates)},
		}, nil
	}
	return Resolved{Contract: chosen}, nil
}

func filterKind(recs []catalog.Record, kind catalog.Kind) []catalog.Record {
	var out []catalog.Record
	for _, rec := range recs {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// filterLive drops expired contracts: expiry must be on or after asOf.
func filterLive(recs []catalog.Record, asOf time.Time) []catalog.Record {
	var out []catalog.Record
	for _, rec := range recs {
		if rec.HasExpiry() && !rec.Expiry.Before(asOf) {
			out = append(out, rec)
		}
	}
	return out
}

func selectExpiry(recs []catalog.Record, q Query) ([]catalog.Record, error) {
	target := time.Time{}
	if q.Expiry != nil {
		target = dateOnly(*q.Expiry)
	} else {
		for _, rec := range recs {
			if target.IsZero() || rec.Expiry.Before(target) {
				target = rec.Expiry
			}
		}
	}
	var out []catalog.Record
	for _, rec := range recs {
		if rec.Expiry.Equal(target) {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, &NoMatchingExpiryError{Root: catalog.Normalize(q.Root), Expiry: target}
	}
	return out, nil
}

func selectStrike(recs []catalog.Record, q Query) ([]catalog.Record, error) {
	if q.Strike == StrikeExact {
		var out []catalog.Record
		for _, rec := range recs {
			if rec.Strike.Equal(q.Exact) {
				out = append(out, rec)
			}
		}
		if len(out) == 0 {
			return nil, &NoMatchingStrikeError{Root: catalog.Normalize(q.Root), Strike: q.Exact}
		}
		return out, nil
	}

	// Nearest-to-reference: minimize |strike - reference|, tie toward the
	// lower strike so repeated runs stay reproducible.
	best := -1
	var bestDist decimal.Decimal
	for i, rec := range recs {
		dist := rec.Strike.Sub(q.Reference).Abs()
		if best < 0 ||
			dist.LessThan(bestDist) ||
			(dist.Equal(bestDist) && rec.Strike.LessThan(recs[best].Strike)) {
			best = i
			bestDist = dist
		}
	}
	var out []catalog.Record
	for _, rec := range recs {
		if rec.Strike.Equal(recs[best].Strike) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
