package config

import (
	"path/filepath"
	"testing"

	"fnobot-go/internal/strategy"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "fnobot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9109" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Venue.TimeoutMs != 8000 {
		t.Fatalf("unexpected Venue.TimeoutMs: %d", cfg.Venue.TimeoutMs)
	}
	if cfg.Venue.ScripMasterURL == "" {
		t.Fatalf("expected scrip master url")
	}
	if cfg.Catalog.Path != "testdata/instruments.csv" {
		t.Fatalf("unexpected Catalog.Path: %s", cfg.Catalog.Path)
	}
	if !cfg.Catalog.FailOnDuplicates {
		t.Fatalf("expected fail_on_duplicates true")
	}
	if cfg.Indicators.FastEMA != 5 || cfg.Indicators.SlowEMA != 20 {
		t.Fatalf("unexpected EMA pair: %d/%d", cfg.Indicators.FastEMA, cfg.Indicators.SlowEMA)
	}
	if cfg.Indicators.MACDSlow != 26 {
		t.Fatalf("unexpected MACD slow: %d", cfg.Indicators.MACDSlow)
	}
	if !cfg.Indicators.Patterns {
		t.Fatalf("expected patterns enabled")
	}
	if cfg.Classifier.Crossover != strategy.CrossAbove {
		t.Fatalf("unexpected crossover mode: %s", cfg.Classifier.Crossover)
	}
	if cfg.Classifier.RewardMultiple != 1.5 {
		t.Fatalf("unexpected reward multiple: %.2f", cfg.Classifier.RewardMultiple)
	}
	if cfg.Scan.Symbol != "NIFTY" || cfg.Scan.Kind != "CE" {
		t.Fatalf("unexpected scan defaults: %+v", cfg.Scan)
	}
	if cfg.Scan.Interval != "FIFTEEN_MINUTE" {
		t.Fatalf("unexpected scan interval: %s", cfg.Scan.Interval)
	}
	if cfg.Scan.Days != 7 {
		t.Fatalf("unexpected scan days: %d", cfg.Scan.Days)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
