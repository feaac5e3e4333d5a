// Package config provides configuration management for the application.
//
// Configuration is read from an optional YAML file, with ${VAR} and
// ${VAR:-default} references expanded from the environment, then overlaid
// with well-known environment variables. A .env file in the working
// directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when Load is given an empty path
const DefaultPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Server         ServerConfig                      `yaml:"server"`
	Logging        LogConfig                         `yaml:"logging"`
	HTTP           HTTPConfig                        `yaml:"http"`
	Storage        StorageConfig                     `yaml:"storage"`
	Cache          CacheConfig                       `yaml:"cache"`
	Metrics        MetricsConfig                     `yaml:"metrics"`
	Usage          UsageConfig                       `yaml:"usage"`
	Providers      map[string]RawProviderConfig      `yaml:"providers"`
	ImageProviders map[string]RawImageProviderConfig `yaml:"image_providers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey, when set, is required as a bearer token on every API route
	MasterKey string `yaml:"master_key"`
	// BodySizeLimit is an echo body limit expression such as "2M"
	BodySizeLimit string `yaml:"body_size_limit"`
}

// LogConfig controls the process logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is "pretty", "json", or empty to pick by terminal detection
	Format string `yaml:"format"`
}

// HTTPConfig holds outbound HTTP client timeouts, in seconds
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// StorageConfig selects the settings store backend
type StorageConfig struct {
	// Type is "sqlite", "postgresql", "mongodb", or "none"
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// CacheConfig selects where the model catalog snapshot is kept
type CacheConfig struct {
	// Type is "local" or "redis"
	Type string `yaml:"type"`
	// Dir holds the local snapshot file
	Dir string `yaml:"dir"`
	// RefreshInterval is in seconds
	RefreshInterval int         `yaml:"refresh_interval"`
	Redis           RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
	// TTL is in seconds
	TTL int `yaml:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// UsageConfig controls token usage recording. It needs a storage backend.
type UsageConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	// FlushInterval is in seconds
	FlushInterval int `yaml:"flush_interval"`
	// RetentionDays of 0 keeps entries forever
	RetentionDays int `yaml:"retention_days"`
}

// RawProviderConfig is a chat provider entry as written in YAML
type RawProviderConfig struct {
	Type        string   `yaml:"type"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	MaxTokens   *int     `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
}

// RawImageProviderConfig is an image provider entry as written in YAML
type RawImageProviderConfig struct {
	Type    string `yaml:"type"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration from path (DefaultPath when empty), expands
// environment references, and applies environment overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := buildDefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "10M",
		},
		Logging: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/aihub.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBConfig{
				Database: "aihub",
			},
		},
		Cache: CacheConfig{
			Type:            "local",
			Dir:             ".cache",
			RefreshInterval: 3600,
			Redis: RedisConfig{
				Key: "aihub:models",
				TTL: 86400,
			},
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Usage: UsageConfig{
			Enabled:       true,
			BufferSize:    1000,
			FlushInterval: 5,
			RetentionDays: 90,
		},
		Providers:      make(map[string]RawProviderConfig),
		ImageProviders: make(map[string]RawImageProviderConfig),
	}
}

// envPattern matches ${VAR} and ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces environment references. References to unset or
// empty variables without a default are left untouched so that callers can
// detect unresolved placeholders.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides overlays well-known environment variables onto cfg.
// Provider credentials are handled separately by the provider packages.
func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.MasterKey, "AIHUB_MASTER_KEY")
	setString(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.SQLite.Path, "SQLITE_PATH")
	setString(&cfg.Storage.PostgreSQL.URL, "POSTGRES_URL")
	setString(&cfg.Storage.MongoDB.URL, "MONGODB_URL")
	setString(&cfg.Storage.MongoDB.Database, "MONGODB_DATABASE")
	setString(&cfg.Cache.Type, "CACHE_TYPE")
	setString(&cfg.Cache.Dir, "AIHUB_CACHE_DIR")
	setString(&cfg.Cache.Redis.URL, "REDIS_URL")
	setString(&cfg.Cache.Redis.Key, "REDIS_KEY")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")

	ints := []struct {
		target *int
		env    string
	}{
		{&cfg.HTTP.Timeout, "HTTP_TIMEOUT"},
		{&cfg.HTTP.ResponseHeaderTimeout, "HTTP_RESPONSE_HEADER_TIMEOUT"},
		{&cfg.Storage.PostgreSQL.MaxConns, "POSTGRES_MAX_CONNS"},
		{&cfg.Cache.RefreshInterval, "CACHE_REFRESH_INTERVAL"},
		{&cfg.Cache.Redis.TTL, "REDIS_TTL"},
		{&cfg.Usage.BufferSize, "USAGE_BUFFER_SIZE"},
		{&cfg.Usage.FlushInterval, "USAGE_FLUSH_INTERVAL"},
		{&cfg.Usage.RetentionDays, "USAGE_RETENTION_DAYS"},
	}
	for _, i := range ints {
		if err := setInt(i.target, i.env); err != nil {
			return err
		}
	}

	if err := setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED"); err != nil {
		return err
	}
	return setBool(&cfg.Usage.Enabled, "USAGE_ENABLED")
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func setInt(target *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	*target = n
	return nil
}

func setBool(target *bool, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	*target = b
	return nil
}
