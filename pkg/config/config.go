package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/validation"
)

// Config holds all configuration for the ingest tool.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local" validate:"required"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis backs the optional dimension id cache. Empty host disables it.
	Redis RedisConfig `yaml:"redis"`

	Ingest IngestConfig `yaml:"ingest"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost" validate:"required"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432" validate:"gt=0,lte=65535"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tmdb" validate:"required"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tmdb" validate:"required"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10" validate:"gt=0"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"2" validate:"gte=0"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection settings for the id cache.
type RedisConfig struct {
	Host      string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port      int           `yaml:"port" env:"REDIS_PORT" env-default:"6379" validate:"gt=0,lte=65535"`
	Password  string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0" validate:"gte=0"`
	KeyPrefix string        `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"tmdb:dim:"`
	TTL       time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"24h" validate:"gte=0"`
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// IngestConfig controls the batch run.
type IngestConfig struct {
	// InputPath is the JSON-lines file of raw movie records.
	InputPath string `yaml:"input_path" env:"INGEST_INPUT" env-default:""`
	// Workers is the number of records processed concurrently.
	Workers int `yaml:"workers" env:"INGEST_WORKERS" env-default:"1" validate:"gte=1,lte=64"`
	// WriteRetries is how many times a transient storage error is retried.
	WriteRetries int `yaml:"write_retries" env:"INGEST_WRITE_RETRIES" env-default:"3" validate:"gte=0,lte=10"`
	// ReportPath receives the YAML run summary. Empty disables the report.
	ReportPath string `yaml:"report_path" env:"INGEST_REPORT" env-default:""`
	// RunMigrations applies pending schema migrations before ingesting.
	RunMigrations bool `yaml:"run_migrations" env:"INGEST_RUN_MIGRATIONS" env-default:"false"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics during the run. Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr" env:"METRICS_LISTEN_ADDR" env-default:""`
}

// Load reads configuration from the YAML file at path with environment variable
// overrides. A missing file is not an error: configuration then comes from the
// environment alone. The version parameter is injected at build time.
func Load(version, path string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := read(path, cfg); err != nil {
		return nil, err
	}

	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = ResolveHostForDocker(cfg.Redis.Host)

	if err := validation.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func read(path string, cfg *Config) error {
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			return nil
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
