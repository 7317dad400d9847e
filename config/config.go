// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/plan"
)

// Ledger backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Plans       []PlanConfig      `yaml:"plans"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	OpenAPI     OpenAPIConfig     `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LedgerConfig selects and configures the usage ledger backend.
type LedgerConfig struct {
	Backend  string      `yaml:"backend"` // "memory", "sqlite" or "redis"
	DSN      string      `yaml:"dsn"`     // sqlite database path
	Shards   int         `yaml:"shards"`  // memory backend shard count
	IDFormat string      `yaml:"id_format"`
	Redis    RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password,omitempty"`
	Prefix   string `yaml:"prefix"`
}

// EnforcementConfig configures the quota enforcer.
type EnforcementConfig struct {
	Strategy    string        `yaml:"strategy"` // "", "atomic", "locked" or "none"
	ReadRetries int           `yaml:"read_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PlanConfig configures a plan.
type PlanConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Granularity string `yaml:"granularity"` // "day" or "month"
	Max         int64  `yaml:"max"`
}

// AuthConfig configures service authentication.
// When ServiceKeyHashes is empty the /v1 API is open.
type AuthConfig struct {
	ServiceKeyHashes []string `yaml:"service_key_hashes"` // bcrypt hashes
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

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
//	IMGQUOTA_SERVER_HOST           - Server host (default: 0.0.0.0)
//	IMGQUOTA_SERVER_PORT           - Server port (default: 8080)
//	IMGQUOTA_LEDGER_BACKEND        - memory, sqlite or redis (default: memory)
//	IMGQUOTA_LEDGER_DSN            - SQLite path (default: imgquota.db)
//	IMGQUOTA_LEDGER_ID_FORMAT      - uuid or typeid (default: uuid)
//	IMGQUOTA_REDIS_ADDR            - Redis address (default: localhost:6379)
//	IMGQUOTA_REDIS_PASSWORD        - Redis password
//	IMGQUOTA_REDIS_DB              - Redis database number
//	IMGQUOTA_ENFORCEMENT_STRATEGY  - atomic, locked or none (default: auto)
//	IMGQUOTA_ENFORCEMENT_TIMEOUT   - Per-call store deadline (default: 2s)
//	IMGQUOTA_SERVICE_KEY_HASH      - bcrypt hash of the service key
//	IMGQUOTA_LOG_LEVEL             - debug, info, warn, error (default: info)
//	IMGQUOTA_LOG_FORMAT            - json or console (default: json)
//	IMGQUOTA_METRICS_ENABLED       - Enable /metrics (default: true)
//	IMGQUOTA_OPENAPI_ENABLED       - Enable /swagger (default: true)
func LoadFromEnv() (*Config, error) {
	return Parse(nil)
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// Catalog builds the immutable plan catalog from the plans section.
func (c *Config) Catalog() (plan.Catalog, error) {
	plans := make([]plan.Plan, 0, len(c.Plans))
	for i, p := range c.Plans {
		g, err := period.ParseGranularity(p.Granularity)
		if err != nil {
			return plan.Catalog{}, fmt.Errorf("plans[%d]: %w", i, err)
		}
		plans = append(plans, plan.Plan{ID: p.ID, Name: p.Name, Granularity: g, Max: p.Max})
	}
	return plan.NewCatalog(plans...)
}

// DefaultPlans returns the built-in plan table in config form.
func DefaultPlans() []PlanConfig {
	defaults := plan.Defaults()
	out := make([]PlanConfig, 0, len(defaults))
	for _, p := range defaults {
		out = append(out, PlanConfig{
			ID:          p.ID,
			Name:        p.Name,
			Granularity: string(p.Granularity),
			Max:         p.Max,
		})
	}
	return out
}

// applyEnvOverrides applies IMGQUOTA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("IMGQUOTA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("IMGQUOTA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IMGQUOTA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("IMGQUOTA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Ledger configuration
	if v := os.Getenv("IMGQUOTA_LEDGER_BACKEND"); v != "" {
		cfg.Ledger.Backend = v
	}
	if v := os.Getenv("IMGQUOTA_LEDGER_DSN"); v != "" {
		cfg.Ledger.DSN = v
	}
	if v := os.Getenv("IMGQUOTA_LEDGER_ID_FORMAT"); v != "" {
		cfg.Ledger.IDFormat = v
	}
	if v := os.Getenv("IMGQUOTA_REDIS_ADDR"); v != "" {
		cfg.Ledger.Redis.Addr = v
	}
	if v := os.Getenv("IMGQUOTA_REDIS_PASSWORD"); v != "" {
		cfg.Ledger.Redis.Password = v
	}
	if v := os.Getenv("IMGQUOTA_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.Redis.DB = n
		}
	}

	// Enforcement configuration
	if v := os.Getenv("IMGQUOTA_ENFORCEMENT_STRATEGY"); v != "" {
		cfg.Enforcement.Strategy = v
	}
	if v := os.Getenv("IMGQUOTA_ENFORCEMENT_READ_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Enforcement.ReadRetries = n
		}
	}
	if v := os.Getenv("IMGQUOTA_ENFORCEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Enforcement.Timeout = d
		}
	}

	// Auth configuration
	if v := os.Getenv("IMGQUOTA_SERVICE_KEY_HASH"); v != "" {
		cfg.Auth.ServiceKeyHashes = []string{v}
	}

	// Logging configuration
	if v := os.Getenv("IMGQUOTA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IMGQUOTA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("IMGQUOTA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("IMGQUOTA_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
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
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	cfg.Ledger.Backend = strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = BackendMemory
	}
	if cfg.Ledger.DSN == "" {
		cfg.Ledger.DSN = "imgquota.db"
	}
	if cfg.Ledger.Shards == 0 {
		cfg.Ledger.Shards = 32
	}
	if cfg.Ledger.IDFormat == "" {
		cfg.Ledger.IDFormat = "uuid"
	}
	if cfg.Ledger.Redis.Addr == "" {
		cfg.Ledger.Redis.Addr = "localhost:6379"
	}
	if cfg.Ledger.Redis.Prefix == "" {
		cfg.Ledger.Redis.Prefix = "imgquota"
	}

	cfg.Enforcement.Strategy = strings.ToLower(strings.TrimSpace(cfg.Enforcement.Strategy))
	if cfg.Enforcement.RetryDelay == 0 {
		cfg.Enforcement.RetryDelay = 50 * time.Millisecond
	}
	if cfg.Enforcement.Timeout == 0 {
		cfg.Enforcement.Timeout = 2 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if len(cfg.Plans) == 0 {
		cfg.Plans = DefaultPlans()
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Ledger.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("ledger.backend must be one of: memory, sqlite, redis; got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Shards < 0 {
		return fmt.Errorf("ledger.shards must be positive, got %d", cfg.Ledger.Shards)
	}

	switch cfg.Ledger.IDFormat {
	case "uuid", "typeid":
	default:
		return fmt.Errorf("ledger.id_format must be 'uuid' or 'typeid', got %q", cfg.Ledger.IDFormat)
	}

	switch cfg.Enforcement.Strategy {
	case "", "atomic", "locked", "none":
	default:
		return fmt.Errorf("enforcement.strategy must be one of: atomic, locked, none; got %q", cfg.Enforcement.Strategy)
	}
	if cfg.Enforcement.ReadRetries < 0 {
		return fmt.Errorf("enforcement.read_retries must not be negative")
	}

	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if _, err := cfg.Catalog(); err != nil {
		return err
	}

	return nil
}
