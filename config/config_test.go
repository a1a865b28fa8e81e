package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "https://quotes.example.com/"
  timeout: 3s
catalog:
  sources:
    - s3://listings/nasdaq.csv
    - https://example.com/kospi.csv
  s3:
    region: ap-northeast-2
    endpoint: http://localhost:9000
    force_path_style: true
search:
  engine: bleve
server:
  provider: mock
  forecast_days: 3
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://quotes.example.com/" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.API.Timeout)
	}
	if len(cfg.Catalog.Sources) != 2 || cfg.Catalog.Sources[0] != "s3://listings/nasdaq.csv" {
		t.Errorf("Sources = %v", cfg.Catalog.Sources)
	}
	if !cfg.Catalog.S3.ForcePathStyle || cfg.Catalog.S3.Region != "ap-northeast-2" {
		t.Errorf("S3 = %+v", cfg.Catalog.S3)
	}
	if cfg.Search.Engine != "bleve" || cfg.Server.Provider != "mock" || cfg.Server.ForecastDays != 3 {
		t.Errorf("unexpected values: %+v %+v", cfg.Search, cfg.Server)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Server.Addr != Defaults().Server.Addr {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Server.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want default", cfg.Server.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Catalog.Sources) != 4 {
		t.Errorf("Sources = %v", cfg.Catalog.Sources)
	}
	if cfg.API.Timeout != 0 {
		t.Errorf("Expected no timeout by default, got %v", cfg.API.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOCK_LOOKUP_API_BASE_URL", "http://10.0.0.5:9000")
	t.Setenv("STOCK_LOOKUP_API_TIMEOUT", "750ms")
	t.Setenv("STOCK_LOOKUP_CATALOG_SOURCES", "a.csv, ,b.csv")
	t.Setenv("STOCK_LOOKUP_SEARCH_ENGINE", "bleve")
	t.Setenv("STOCK_LOOKUP_SERVER_FORECAST_DAYS", "not-a-number")
	t.Setenv("STOCK_LOOKUP_CATALOG_S3_FORCE_PATH_STYLE", "true")

	path := writeConfig(t, "search:\n  engine: scan\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 750*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.API.Timeout)
	}
	if got := strings.Join(cfg.Catalog.Sources, "|"); got != "a.csv|b.csv" {
		t.Errorf("Sources = %q", got)
	}
	if cfg.Search.Engine != "bleve" {
		t.Errorf("env should win over file, got %q", cfg.Search.Engine)
	}
	if cfg.Server.ForecastDays != 5 {
		t.Errorf("unparseable override should be ignored, got %d", cfg.Server.ForecastDays)
	}
	if !cfg.Catalog.S3.ForcePathStyle {
		t.Errorf("ForcePathStyle not overridden")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no sources", func(c *Config) { c.Catalog.Sources = nil }, "at least one source"},
		{"blank source", func(c *Config) { c.Catalog.Sources = []string{" "} }, "source 0 is empty"},
		{"engine", func(c *Config) { c.Search.Engine = "elastic" }, "unknown engine"},
		{"timeout", func(c *Config) { c.API.Timeout = -time.Second }, "timeout must not be negative"},
		{"base url", func(c *Config) { c.API.BaseURL = "quotes.example.com" }, "not an absolute URL"},
		{"provider", func(c *Config) { c.Server.Provider = "bloomberg" }, "unknown provider"},
		{"forecast", func(c *Config) { c.Server.ForecastDays = 0 }, "forecast_days"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "unknown level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestResolvedBaseURL(t *testing.T) {
	cfg := Defaults()
	if got := cfg.ResolvedBaseURL(); got != "http://127.0.0.1:8080" {
		t.Errorf("default = %q", got)
	}

	cfg.Server.Addr = ":9090"
	if got := cfg.ResolvedBaseURL(); got != "http://127.0.0.1:9090" {
		t.Errorf("port-only addr = %q", got)
	}

	cfg.API.BaseURL = "https://quotes.example.com"
	if got := cfg.ResolvedBaseURL(); got != "https://quotes.example.com" {
		t.Errorf("explicit = %q", got)
	}
}
