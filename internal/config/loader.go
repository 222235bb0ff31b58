package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "costreport.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "COSTREPORT_PORT")
	setString(&cfg.Server.CORSOrigin, "COSTREPORT_CORS_ORIGIN")
	setDuration(&cfg.Server.ReadTimeout, "COSTREPORT_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "COSTREPORT_WRITE_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "COSTREPORT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "COSTREPORT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "COSTREPORT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "COSTREPORT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "COSTREPORT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "COSTREPORT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "COSTREPORT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "COSTREPORT_LOG_ASYNC")

	// Cache
	setBool(&cfg.Cache.Enabled, "COSTREPORT_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "COSTREPORT_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "COSTREPORT_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "COSTREPORT_CACHE_L2_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "COSTREPORT_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "COSTREPORT_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "COSTREPORT_OTEL_SAMPLE_RATE")

	// Report
	setString(&cfg.Report.DefaultTenant, "COSTREPORT_DEFAULT_TENANT")
	setDuration(&cfg.Report.CacheTTL, "COSTREPORT_REPORT_CACHE_TTL")
	setBool(&cfg.Report.MigrateOnStart, "COSTREPORT_MIGRATE_ON_START")
	setInt(&cfg.Report.MaxConcurrent, "COSTREPORT_REPORT_MAX_CONCURRENT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Report.DefaultTenant == "" {
		return errors.New("report.default_tenant is required")
	}
	if cfg.Report.MaxConcurrent < 1 {
		return errors.New("report.max_concurrent must be >= 1")
	}
	if cfg.Cache.Enabled && cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1 when the cache is enabled")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
