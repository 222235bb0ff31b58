package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Report.DefaultTenant != "public" {
		t.Errorf("expected default tenant public, got %s", cfg.Report.DefaultTenant)
	}
	if cfg.Report.CacheTTL != 5*time.Minute {
		t.Errorf("expected report cache ttl 5m, got %v", cfg.Report.CacheTTL)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
postgres:
  max_conns: 20
cache:
  l2_bucket: "REPORTS"
report:
  default_tenant: "acct10001"
  cache_ttl: 30s
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Cache.L2Bucket != "REPORTS" {
		t.Errorf("expected bucket REPORTS, got %s", cfg.Cache.L2Bucket)
	}
	if cfg.Report.DefaultTenant != "acct10001" || cfg.Report.CacheTTL != 30*time.Second {
		t.Errorf("unexpected report section %+v", cfg.Report)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("COSTREPORT_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("COSTREPORT_PG_MAX_CONNS", "25")
	t.Setenv("COSTREPORT_LOG_LEVEL", "warn")
	t.Setenv("COSTREPORT_CACHE_ENABLED", "false")
	t.Setenv("COSTREPORT_REPORT_CACHE_TTL", "1m")
	t.Setenv("COSTREPORT_OTEL_SAMPLE_RATE", "0.25")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if cfg.Report.CacheTTL != time.Minute {
		t.Errorf("expected report cache ttl 1m, got %v", cfg.Report.CacheTTL)
	}
	if cfg.OTEL.SampleRate != 0.25 {
		t.Errorf("expected sample rate 0.25, got %v", cfg.OTEL.SampleRate)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "zero max conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "empty default tenant",
			modify: func(c *Config) { c.Report.DefaultTenant = "" },
			errMsg: "report.default_tenant is required",
		},
		{
			name:   "zero max concurrent",
			modify: func(c *Config) { c.Report.MaxConcurrent = 0 },
			errMsg: "report.max_concurrent must be >= 1",
		},
		{
			name:   "cache without L1 size",
			modify: func(c *Config) { c.Cache.L1MaxSizeMB = 0 },
			errMsg: "cache.l1_max_size_mb",
		},
		{
			name:   "sample rate out of range",
			modify: func(c *Config) { c.OTEL.SampleRate = 2 },
			errMsg: "otel.sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateCacheDisabledSkipsSize(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.Enabled = false
	cfg.Cache.L1MaxSizeMB = 0
	if err := validate(&cfg); err != nil {
		t.Errorf("disabled cache needs no L1 size, got %v", err)
	}
}
