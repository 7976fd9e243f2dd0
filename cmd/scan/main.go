// Binary scan runs the pipeline once for a single contract query and logs
// the derived signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"fnobot-go/internal/candle"
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/config"
	"fnobot-go/internal/engine"
	"fnobot-go/internal/resolver"
	"fnobot-go/internal/util"
	"fnobot-go/internal/venue"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config.yaml", "path to YAML config")
		symbol    = flag.String("symbol", "", "root symbol (defaults to scan.symbol from config)")
		kindFlag  = flag.String("kind", "", "contract kind: FUT, CE, PE, EQ")
		policy    = flag.String("strike-policy", "nearest", "strike policy for options: nearest or exact")
		reference = flag.String("reference", "", "reference price for nearest-strike selection; empty quotes the nearest future")
		strike    = flag.String("strike", "", "strike for exact selection")
		expiry    = flag.String("expiry", "", "exact expiry (YYYY-MM-DD); empty picks nearest upcoming")
		candles   = flag.String("candles", "", "JSON file of candle rows; empty fetches from the venue")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	creds := venue.Credentials{
		APIKey:      os.Getenv("FNOBOT_API_KEY"),
		ClientCode:  os.Getenv("FNOBOT_CLIENT_CODE"),
		AccessToken: os.Getenv("FNOBOT_ACCESS_TOKEN"),
	}
	client := venue.NewClient(log, cfg.Venue.BaseURL, cfg.Venue.ScripMasterURL,
		time.Duration(cfg.Venue.TimeoutMs)*time.Millisecond, creds)

	var fetcher engine.CandleFetcher = client
	if *candles != "" {
		fetcher = fileFetcher{path: *candles}
	}

	store := catalog.NewStore()
	eng := engine.New(log, store, fetcher, engine.Options{
		Indicators:       cfg.Indicators,
		Classifier:       cfg.Classifier,
		Interval:         cfg.Scan.Interval,
		LookbackDays:     cfg.Scan.Days,
		FailOnDuplicates: cfg.Catalog.FailOnDuplicates,
	})

	if err := loadCatalog(ctx, eng, client, cfg.Catalog.Path); err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}

	q, err := buildQuery(cfg, *symbol, *kindFlag, *policy, *reference, *strike, *expiry)
	if err != nil {
		log.Fatal().Err(err).Msg("build query")
	}

	asOf := time.Now().UTC()
	if q.Kind.Option() && q.Strike == resolver.StrikeNearest && q.Reference.IsZero() {
		ref, err := eng.AutoReference(ctx, client, q.Root, asOf)
		if err != nil {
			log.Fatal().Err(err).Msg("derive reference price")
		}
		log.Info().Str("reference", ref.String()).Msg("reference from nearest future")
		q.Reference = ref
	}

	report, err := eng.Analyze(ctx, q, asOf)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}

	sig := report.Signal
	event := log.Info().
		Str("contract", report.Contract.TradingSymbol).
		Str("token", report.Contract.Token).
		Str("direction", string(sig.Direction)).
		Str("label", sig.Direction.OptionLabel()).
		Str("reason", sig.Reason)
	if sig.Levels != nil {
		event = event.
			Float64("entry", sig.Levels.Entry).
			Float64("target", sig.Levels.Target).
			Float64("stop", sig.Levels.Stop)
	}
	event.Msg("signal")
}

// fileFetcher replays a saved candle response instead of hitting the venue.
type fileFetcher struct {
	path string
}

func (f fileFetcher) FetchCandles(context.Context, venue.CandleRequest) ([]candle.RawCandle, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return venue.DecodeCandleRows(file)
}

func loadCatalog(ctx context.Context, eng *engine.Engine, client *venue.Client, path string) error {
	if path == "" {
		rows, err := client.FetchScripMaster(ctx)
		if err != nil {
			return err
		}
		return eng.ReloadCatalog(rows)
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	var cat *catalog.Catalog
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		cat, err = catalog.LoadCSV(file)
	} else {
		cat, err = catalog.LoadJSON(file)
	}
	if err != nil {
		return err
	}
	return eng.ReplaceCatalog(cat)
}

func buildQuery(cfg *config.Config, symbol, kindFlag, policy, reference, strike, expiry string) (resolver.Query, error) {
	if symbol == "" {
		symbol = cfg.Scan.Symbol
	}
	if kindFlag == "" {
		kindFlag = cfg.Scan.Kind
	}
	kind, err := parseKind(kindFlag)
	if err != nil {
		return resolver.Query{}, err
	}
	q := resolver.Query{Root: symbol, Kind: kind}

	if expiry != "" {
		t, err := time.Parse("2006-01-02", expiry)
		if err != nil {
			return resolver.Query{}, err
		}
		q.Expiry = &t
	}

	if !kind.Option() {
		return q, nil
	}
	if policy == "exact" {
		q.Strike = resolver.StrikeExact
		q.Exact, err = decimal.NewFromString(strike)
		return q, err
	}
	q.Strike = resolver.StrikeNearest
	if reference != "" {
		q.Reference, err = decimal.NewFromString(reference)
	}
	return q, err
}

func parseKind(raw string) (catalog.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FUT", "FUTURE":
		return catalog.KindFuture, nil
	case "CE", "CALL":
		return catalog.KindCallOption, nil
	case "PE", "PUT":
		return catalog.KindPutOption, nil
	case "EQ", "EQUITY":
		return catalog.KindEquity, nil
	default:
		return "", fmt.Errorf("unknown kind %q", raw)
	}
}
