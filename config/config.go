// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/bazaargate/adapters/postgres"
	"github.com/artpar/bazaargate/domain/query"
	"github.com/artpar/bazaargate/domain/quota"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Quota     QuotaConfig     `yaml:"quota"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string         `yaml:"dsn"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// PostgresConfig holds discrete connection settings, used when dsn is empty.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MinConns int    `yaml:"min_conns"`
	MaxConns int    `yaml:"max_conns"`
}

// QuotaConfig configures the usage reset schedule.
type QuotaConfig struct {
	ResetInterval time.Duration `yaml:"reset_interval"`
}

// EndpointsConfig configures per-endpoint gating.
type EndpointsConfig struct {
	Snapshot EndpointConfig `yaml:"snapshot"`
	Field    EndpointConfig `yaml:"field"`
	History  EndpointConfig `yaml:"history"`
}

// EndpointConfig configures one endpoint. A nil RequireKey keeps the default.
type EndpointConfig struct {
	RequireKey *bool `yaml:"require_key,omitempty"`
}

// QueryConfig configures query limits.
type QueryConfig struct {
	MaxHistoryLimit int `yaml:"max_history_limit"` // 0 = unbounded
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /metrics endpoint
}

// Policies resolves the endpoint gating, falling back to query.DefaultPolicies.
func (c *Config) Policies() query.Policies {
	p := query.DefaultPolicies()
	if v := c.Endpoints.Snapshot.RequireKey; v != nil {
		p.Snapshot.RequireKey = *v
	}
	if v := c.Endpoints.Field.RequireKey; v != nil {
		p.Field.RequireKey = *v
	}
	if v := c.Endpoints.History.RequireKey; v != nil {
		p.History.RequireKey = *v
	}
	return p
}

// PostgresConfig returns the connection settings for the postgres adapter.
func (c *Config) PostgresConfig() postgres.Config {
	pg := c.Database.Postgres
	return postgres.Config{
		DSN:      c.Database.DSN,
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		Name:     pg.Name,
		SSLMode:  pg.SSLMode,
		MinConns: pg.MinConns,
		MaxConns: pg.MaxConns,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	BAZAARGATE_SERVER_HOST              - Server host (default: 0.0.0.0)
//	BAZAARGATE_SERVER_PORT              - Server port (default: 8080)
//	BAZAARGATE_DATABASE_DRIVER          - sqlite or postgres (default: sqlite)
//	BAZAARGATE_DATABASE_DSN             - Database path or postgres URL (default: bazaargate.db)
//	BAZAARGATE_QUOTA_RESET_INTERVAL     - Usage reset interval (default: 10m)
//	BAZAARGATE_SNAPSHOT_REQUIRE_KEY     - Gate the full snapshot endpoint (default: false)
//	BAZAARGATE_QUERY_MAX_HISTORY_LIMIT  - Clamp for history limits (default: 0, unbounded)
//	BAZAARGATE_LOG_LEVEL                - Log level: debug, info, warn, error (default: info)
//	BAZAARGATE_LOG_FORMAT               - Log format: json or console (default: json)
//	BAZAARGATE_METRICS_ENABLED          - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies BAZAARGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("BAZAARGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BAZAARGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BAZAARGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("BAZAARGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("BAZAARGATE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("BAZAARGATE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_HOST"); v != "" {
		cfg.Database.Postgres.Host = v
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Postgres.Port = port
		}
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_USER"); v != "" {
		cfg.Database.Postgres.User = v
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_PASSWORD"); v != "" {
		cfg.Database.Postgres.Password = v
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_NAME"); v != "" {
		cfg.Database.Postgres.Name = v
	}
	if v := os.Getenv("BAZAARGATE_POSTGRES_SSLMODE"); v != "" {
		cfg.Database.Postgres.SSLMode = v
	}

	// Quota configuration
	if v := os.Getenv("BAZAARGATE_QUOTA_RESET_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Quota.ResetInterval = d
		}
	}

	// Endpoint gating
	if v := os.Getenv("BAZAARGATE_SNAPSHOT_REQUIRE_KEY"); v != "" {
		b := parseBool(v)
		cfg.Endpoints.Snapshot.RequireKey = &b
	}

	// Query configuration
	if v := os.Getenv("BAZAARGATE_QUERY_MAX_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.MaxHistoryLimit = n
		}
	}

	// Logging configuration
	if v := os.Getenv("BAZAARGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BAZAARGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("BAZAARGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "bazaargate.db"
	}

	if cfg.Quota.ResetInterval == 0 {
		cfg.Quota.ResetInterval = quota.DefaultResetInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.dsn or database.postgres.host is required when database.driver is 'postgres'")
		}
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got %q", cfg.Database.Driver)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Quota.ResetInterval < time.Second {
		return fmt.Errorf("quota.reset_interval must be at least 1s, got %s", cfg.Quota.ResetInterval)
	}

	if cfg.Query.MaxHistoryLimit < 0 {
		return fmt.Errorf("query.max_history_limit must not be negative, got %d", cfg.Query.MaxHistoryLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
