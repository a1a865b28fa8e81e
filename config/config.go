// Package config loads stock-lookup settings from a YAML file, an optional
// .env file and STOCK_LOOKUP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STOCK_LOOKUP_"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration.
type Config struct {
	API     API     `yaml:"api"`
	Catalog Catalog `yaml:"catalog"`
	Search  Search  `yaml:"search"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// API describes the price/analysis backend the client talks to.
type API struct {
	// BaseURL is the backend origin. Empty means the co-hosted dev server.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// KeyEnv names the environment variable holding the backend API key.
	KeyEnv string `yaml:"key_env"`
}

// Catalog lists the CSV sources merged into the security catalog.
type Catalog struct {
	Sources []string `yaml:"sources"`
	S3      S3       `yaml:"s3"`
}

type S3 struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Search struct {
	Engine string `yaml:"engine"`
}

// Server configures the development backend started by `serve`.
type Server struct {
	Addr         string        `yaml:"addr"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	Provider     string        `yaml:"provider"`
	ForecastDays int           `yaml:"forecast_days"`
	DataDir      string        `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
	// File receives log output; empty discards it in the TUI.
	File string `yaml:"file"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: API{
			KeyEnv: "STOCK_LOOKUP_API_KEY",
		},
		Catalog: Catalog{
			Sources: []string{
				"data/nasdaq.csv",
				"data/nyse.csv",
				"data/kospi.csv",
				"data/kosdaq.csv",
			},
		},
		Search: Search{Engine: "scan"},
		Server: Server{
			Addr:         "127.0.0.1:8080",
			CacheTTL:     time.Minute,
			Provider:     "yahoo",
			ForecastDays: 5,
			DataDir:      "data",
		},
		Logging: Logging{Level: "info"},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load merges the YAML file at path over Defaults and applies environment
// overrides. A missing file is not an error. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.API.BaseURL, envPrefix+"API_BASE_URL")
	setDuration(&cfg.API.Timeout, envPrefix+"API_TIMEOUT")
	setStr(&cfg.API.KeyEnv, envPrefix+"API_KEY_ENV")

	setStringSlice(&cfg.Catalog.Sources, envPrefix+"CATALOG_SOURCES")
	setStr(&cfg.Catalog.S3.Region, envPrefix+"CATALOG_S3_REGION")
	setStr(&cfg.Catalog.S3.Endpoint, envPrefix+"CATALOG_S3_ENDPOINT")
	setBool(&cfg.Catalog.S3.ForcePathStyle, envPrefix+"CATALOG_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Search.Engine, envPrefix+"SEARCH_ENGINE")

	setStr(&cfg.Server.Addr, envPrefix+"SERVER_ADDR")
	setDuration(&cfg.Server.CacheTTL, envPrefix+"SERVER_CACHE_TTL")
	setStr(&cfg.Server.Provider, envPrefix+"SERVER_PROVIDER")
	setInt(&cfg.Server.ForecastDays, envPrefix+"SERVER_FORECAST_DAYS")
	setStr(&cfg.Server.DataDir, envPrefix+"SERVER_DATA_DIR")

	setStr(&cfg.Logging.Level, envPrefix+"LOG_LEVEL")
	setStr(&cfg.Logging.File, envPrefix+"LOG_FILE")
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var (
	validEngines   = map[string]bool{"scan": true, "bleve": true}
	validProviders = map[string]bool{"yahoo": true, "mock": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Catalog.Sources) == 0 {
		errs = append(errs, "catalog: at least one source is required")
	}
	for i, src := range c.Catalog.Sources {
		if strings.TrimSpace(src) == "" {
			errs = append(errs, fmt.Sprintf("catalog: source %d is empty", i))
		}
	}

	if !validEngines[strings.ToLower(c.Search.Engine)] {
		errs = append(errs, fmt.Sprintf("search: unknown engine %q (valid: scan, bleve)", c.Search.Engine))
	}

	if c.API.Timeout < 0 {
		errs = append(errs, "api: timeout must not be negative")
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("api: base_url %q is not an absolute URL", c.API.BaseURL))
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, "server: addr must not be empty")
	}
	if c.Server.CacheTTL < 0 {
		errs = append(errs, "server: cache_ttl must not be negative")
	}
	if !validProviders[strings.ToLower(c.Server.Provider)] {
		errs = append(errs, fmt.Sprintf("server: unknown provider %q (valid: yahoo, mock)", c.Server.Provider))
	}
	if c.Server.ForecastDays <= 0 {
		errs = append(errs, "server: forecast_days must be positive")
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging: unknown level %q (valid: debug, info, warn, error)", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ResolvedBaseURL is the backend origin the client should use. An empty
// base_url points at the dev server on server.addr.
func (c *Config) ResolvedBaseURL() string {
	if c.API.BaseURL != "" {
		return c.API.BaseURL
	}
	addr := c.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}
