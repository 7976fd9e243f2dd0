// Package engine wires the resolution and derivation pipeline end to end:
// catalog snapshot, contract resolution, candle normalization, indicator
// annotation, and signal classification. It performs no I/O itself; the
// candle fetcher is an injected collaborator.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fnobot-go/internal/candle"
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/indicator"
	"fnobot-go/internal/metrics"
	"fnobot-go/internal/resolver"
	"fnobot-go/internal/signal"
	"fnobot-go/internal/strategy"
	"fnobot-go/internal/venue"
)

// CandleFetcher supplies raw candle rows for a resolved contract. The venue
// client implements it; tests inject fakes.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, req venue.CandleRequest) ([]candle.RawCandle, error)
}

// QuoteFetcher supplies the last traded price for a resolved contract.
type QuoteFetcher interface {
	FetchLTP(ctx context.Context, rec catalog.Record) (float64, error)
}

// Options bundles the engine's tunables.
type Options struct {
	Indicators       indicator.Set
	Classifier       strategy.Params
	Interval         string
	LookbackDays     int
	FailOnDuplicates bool
}

// Engine is safe for concurrent use: the catalog store hands out immutable
// snapshots and every request runs on its own stack.
type Engine struct {
	log     zerolog.Logger
	store   *catalog.Store
	fetcher CandleFetcher
	opts    Options

	set        indicator.Set
	classifier *strategy.Classifier
}

// New builds an engine around a catalog store and candle fetcher.
func New(log zerolog.Logger, store *catalog.Store, fetcher CandleFetcher, opts Options) *Engine {
	if opts.Interval == "" {
		opts.Interval = "FIFTEEN_MINUTE"
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	return &Engine{
		log:        log,
		store:      store,
		fetcher:    fetcher,
		opts:       opts,
		set:        opts.Indicators,
		classifier: strategy.New(opts.Classifier),
	}
}

// ReloadCatalog normalizes fresh instrument rows and atomically swaps them
// in. A malformed batch leaves the previous snapshot untouched.
func (e *Engine) ReloadCatalog(rows []catalog.RawRow) error {
	cat, err := catalog.Load(rows)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	e.store.Replace(cat)
	metrics.CatalogReloadsTotal.Inc()
	metrics.CatalogRecords.Set(float64(cat.Len()))
	e.log.Info().Int("records", cat.Len()).Msg("catalog reloaded")
	return nil
}

// ReplaceCatalog installs an already-loaded catalog (e.g. from a local
// instrument file) behind the same atomic swap.
func (e *Engine) ReplaceCatalog(cat *catalog.Catalog) error {
	if cat == nil {
		return fmt.Errorf("nil catalog")
	}
	e.store.Replace(cat)
	metrics.CatalogReloadsTotal.Inc()
	metrics.CatalogRecords.Set(float64(cat.Len()))
	e.log.Info().Int("records", cat.Len()).Msg("catalog replaced")
	return nil
}

// Resolve selects one contract against the current catalog snapshot.
func (e *Engine) Resolve(q resolver.Query, asOf time.Time) (resolver.Resolved, error) {
	cat, err := e.store.Snapshot()
	if err != nil {
		return resolver.Resolved{}, err
	}
	res, err := resolver.Resolve(cat, q, asOf)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(catalog.Normalize(q.Root), "error").Inc()
		return resolver.Resolved{}, err
	}
	if res.Warning != nil {
		if e.opts.FailOnDuplicates {
			metrics.ResolutionsTotal.WithLabelValues(catalog.Normalize(q.Root), "duplicate").Inc()
			return resolver.Resolved{}, fmt.Errorf("resolve %s: %w", q.Root, res.Warning)
		}
		e.log.Warn().Str("symbol", res.Contract.TradingSymbol).Msg(res.Warning.Error())
	}
	metrics.ResolutionsTotal.WithLabelValues(catalog.Normalize(q.Root), "resolved").Inc()
	return res, nil
}

// AutoReference derives an ATM reference price for a root by resolving its
// nearest-expiry future and quoting the last traded price. Used when a
// nearest-strike query carries no explicit reference.
func (e *Engine) AutoReference(ctx context.Context, quotes QuoteFetcher, root string, asOf time.Time) (decimal.Decimal, error) {
	res, err := e.Resolve(resolver.Query{Root: root, Kind: catalog.KindFuture}, asOf)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reference future for %s: %w", root, err)
	}
	px, err := quotes.FetchLTP(ctx, res.Contract)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("quote %s: %w", res.Contract.TradingSymbol, err)
	}
	if px <= 0 {
		return decimal.Decimal{}, fmt.Errorf("quote %s: non-positive ltp %v", res.Contract.TradingSymbol, px)
	}
	return decimal.NewFromFloat(px), nil
}

// Report is the full pipeline output for one request.
type Report struct {
	Contract  catalog.Record
	Annotated *indicator.Annotated
	Signal    signal.Signal
}

// Analyze runs the whole pipeline for a query: resolve, fetch, normalize,
// annotate, classify. Typed failures from any stage propagate unchanged so
// callers can distinguish "no data" from "no signal".
func (e *Engine) Analyze(ctx context.Context, q resolver.Query, asOf time.Time) (Report, error) {
	res, err := e.Resolve(q, asOf)
	if err != nil {
		return Report{}, err
	}
	contract := res.Contract

	from := asOf.AddDate(0, 0, -e.opts.LookbackDays)
	rows, err := e.fetcher.FetchCandles(ctx, venue.NewCandleRequest(contract, e.opts.Interval, from, asOf))
	if err != nil {
		return Report{}, fmt.Errorf("fetch candles for %s: %w", contract.TradingSymbol, err)
	}

	series, err := candle.Normalize(rows)
	if err != nil {
		return Report{}, fmt.Errorf("normalize %s: %w", contract.TradingSymbol, err)
	}
	metrics.CandlesNormalizedTotal.Add(float64(len(series)))

	annotated := indicator.Annotate(series, e.set)
	sig := e.classifier.Evaluate(contract.TradingSymbol, annotated)
	metrics.SignalsTotal.WithLabelValues(contract.TradingSymbol, string(sig.Direction)).Inc()

	e.log.Info().
		Str("symbol", contract.TradingSymbol).
		Str("direction", string(sig.Direction)).
		Str("reason", sig.Reason).
		Msg("pipeline evaluated")
	return Report{Contract: contract, Annotated: annotated, Signal: sig}, nil
}
