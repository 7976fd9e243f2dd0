// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fnobot-go/internal/indicator"
	"fnobot-go/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	ListenAddr  string `yaml:"listen_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Venue describes the trading venue endpoints the I/O layer talks to.
// Credentials are not configured here; they arrive pre-issued via the
// environment (see the cmd binaries).
type Venue struct {
	BaseURL        string `yaml:"base_url"`
	ScripMasterURL string `yaml:"scrip_master_url"`
	StreamURL      string `yaml:"stream_url"`
	TimeoutMs      int    `yaml:"timeout_ms"`
}

// Catalog points at the instrument master source and its refresh cadence.
type Catalog struct {
	Path             string `yaml:"path"` // local JSON/CSV file; empty means fetch from the venue
	RefreshHours     int    `yaml:"refresh_hours"`
	FailOnDuplicates bool   `yaml:"fail_on_duplicates"`
}

// Scan sets the default contract query for the one-shot scanner.
type Scan struct {
	Symbol   string `yaml:"symbol"`
	Kind     string `yaml:"kind"`
	Interval string `yaml:"interval"`
	Days     int    `yaml:"days"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App             `yaml:"app"`
	Venue      Venue           `yaml:"venue"`
	Catalog    Catalog         `yaml:"catalog"`
	Indicators indicator.Set   `yaml:"indicators"`
	Classifier strategy.Params `yaml:"classifier"`
	Scan       Scan            `yaml:"scan"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
