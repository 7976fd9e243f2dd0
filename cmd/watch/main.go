// Binary watch resolves one contract and tails its live LTP ticks from the
// venue websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"fnobot-go/internal/catalog"
	"fnobot-go/internal/config"
	"fnobot-go/internal/engine"
	"fnobot-go/internal/resolver"
	"fnobot-go/internal/signal"
	"fnobot-go/internal/util"
	"fnobot-go/internal/venue"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config.yaml", "path to YAML config")
		symbol    = flag.String("symbol", "", "root symbol (defaults to scan.symbol from config)")
		kindFlag  = flag.String("kind", "", "contract kind: FUT, CE, PE, EQ")
		reference = flag.String("reference", "", "reference price for nearest-strike selection; empty quotes the nearest future")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	creds := venue.Credentials{
		APIKey:      os.Getenv("FNOBOT_API_KEY"),
		ClientCode:  os.Getenv("FNOBOT_CLIENT_CODE"),
		AccessToken: os.Getenv("FNOBOT_ACCESS_TOKEN"),
	}
	client := venue.NewClient(log, cfg.Venue.BaseURL, cfg.Venue.ScripMasterURL,
		time.Duration(cfg.Venue.TimeoutMs)*time.Millisecond, creds)

	store := catalog.NewStore()
	eng := engine.New(log, store, client, engine.Options{
		FailOnDuplicates: cfg.Catalog.FailOnDuplicates,
	})

	rows, err := client.FetchScripMaster(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch scrip master")
	}
	if err := eng.ReloadCatalog(rows); err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}

	q, err := buildQuery(cfg, *symbol, *kindFlag, *reference)
	if err != nil {
		log.Fatal().Err(err).Msg("build query")
	}
	asOf := time.Now().UTC()
	if q.Kind.Option() && q.Reference.IsZero() {
		q.Reference, err = eng.AutoReference(ctx, client, q.Root, asOf)
		if err != nil {
			log.Fatal().Err(err).Msg("derive reference price")
		}
	}

	res, err := eng.Resolve(q, asOf)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve contract")
	}
	contract := res.Contract
	log.Info().
		Str("contract", contract.TradingSymbol).
		Str("token", contract.Token).
		Msg("watching")

	ticks := make(chan signal.Tick, 64)
	stream := venue.NewStream(log, cfg.Venue.StreamURL, creds,
		map[string]string{contract.Token: contract.TradingSymbol})
	go func() {
		if err := stream.Run(ctx, ticks); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("ltp stream stopped")
		}
		close(ticks)
	}()

	for tick := range ticks {
		log.Info().
			Str("symbol", tick.Symbol).
			Float64("ltp", tick.Price).
			Time("ts", tick.Ts).
			Msg("tick")
	}
	log.Info().Msg("shutting down")
}

func buildQuery(cfg *config.Config, symbol, kindFlag, reference string) (resolver.Query, error) {
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
	if kind.Option() {
		q.Strike = resolver.StrikeNearest
		if reference != "" {
			q.Reference, err = decimal.NewFromString(reference)
		}
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
