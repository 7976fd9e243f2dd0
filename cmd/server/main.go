// Binary server exposes the resolution and signal pipeline over HTTP along
// with Prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fnobot-go/internal/api"
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/config"
	"fnobot-go/internal/engine"
	"fnobot-go/internal/metrics"
	"fnobot-go/internal/util"
	"fnobot-go/internal/venue"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("FNOBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

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
		Indicators:       cfg.Indicators,
		Classifier:       cfg.Classifier,
		Interval:         cfg.Scan.Interval,
		LookbackDays:     cfg.Scan.Days,
		FailOnDuplicates: cfg.Catalog.FailOnDuplicates,
	})

	reload := func(ctx context.Context) error {
		return reloadCatalog(ctx, eng, client, cfg.Catalog.Path)
	}
	if err := reload(ctx); err != nil {
		log.Fatal().Err(err).Msg("initial catalog load")
	}
	go refreshLoop(ctx, log, reload, cfg.Catalog.RefreshHours)

	server := api.NewServer(log, eng, client, reload)
	httpServer := &http.Server{Addr: cfg.App.ListenAddr, Handler: server.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.App.ListenAddr).Msg("api up")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("api server stopped")
	}
	log.Info().Msg("shutting down")
}

// reloadCatalog prefers a local instrument file when configured, otherwise
// downloads the scrip master from the venue.
func reloadCatalog(ctx context.Context, eng *engine.Engine, client *venue.Client, path string) error {
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
	if isCSV(path) {
		cat, err = catalog.LoadCSV(file)
	} else {
		cat, err = catalog.LoadJSON(file)
	}
	if err != nil {
		return err
	}
	return eng.ReplaceCatalog(cat)
}

func isCSV(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".csv")
}

// refreshLoop re-pulls the instrument master on the configured cadence (the
// venue republishes it daily).
func refreshLoop(ctx context.Context, log zerolog.Logger, reload func(context.Context) error, hours int) {
	if hours <= 0 {
		hours = 24
	}
	ticker := time.NewTicker(time.Duration(hours) * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reload(ctx); err != nil {
				log.Warn().Err(err).Msg("catalog refresh failed")
			}
		}
	}
}
