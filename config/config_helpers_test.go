package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	env := map[string]string{
		"AIHUB_T_KEY":   "sk-12345",
		"AIHUB_T_HOST":  "api.example.com",
		"AIHUB_T_EMPTY": "",
		"AIHUB_T_UNSET": "",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	tests := []struct {
		name, in, want string
	}{
		{"empty input", "", ""},
		{"no references", "plain-value", "plain-value"},
		{"whole value", "${AIHUB_T_KEY}", "sk-12345"},
		{"embedded", "Bearer ${AIHUB_T_KEY}!", "Bearer sk-12345!"},
		{"several", "https://${AIHUB_T_HOST}/${AIHUB_T_KEY}", "https://api.example.com/sk-12345"},
		{"default ignored when set", "${AIHUB_T_KEY:-fallback}", "sk-12345"},
		{"default when unset", "${AIHUB_T_UNSET:-fallback}", "fallback"},
		{"default when empty", "${AIHUB_T_EMPTY:-fallback}", "fallback"},
		{"default with colons", "${AIHUB_T_UNSET:-http://localhost:11434}", "http://localhost:11434"},
		{"empty default", "${AIHUB_T_UNSET:-}", ""},
		{"unresolved kept", "${AIHUB_T_UNSET}", "${AIHUB_T_UNSET}"},
		{"empty kept", "${AIHUB_T_EMPTY}", "${AIHUB_T_EMPTY}"},
		{"mixed", "${AIHUB_T_HOST}:${AIHUB_T_UNSET:-443}:${AIHUB_T_UNSET}", "api.example.com:443:${AIHUB_T_UNSET}"},
		{"invalid name untouched", "${1BAD}", "${1BAD}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandString(tt.in); got != tt.want {
				t.Errorf("expandString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// overrideEnvs lists every variable applyEnvOverrides reads.
var overrideEnvs = []string{
	"PORT", "AIHUB_MASTER_KEY", "BODY_SIZE_LIMIT", "LOG_LEVEL", "LOG_FORMAT", "STORAGE_TYPE",
	"SQLITE_PATH", "POSTGRES_URL", "MONGODB_URL", "MONGODB_DATABASE", "CACHE_TYPE",
	"AIHUB_CACHE_DIR", "REDIS_URL", "REDIS_KEY", "METRICS_ENDPOINT", "METRICS_ENABLED",
	"USAGE_ENABLED", "HTTP_TIMEOUT", "HTTP_RESPONSE_HEADER_TIMEOUT", "POSTGRES_MAX_CONNS",
	"CACHE_REFRESH_INTERVAL", "REDIS_TTL", "USAGE_BUFFER_SIZE", "USAGE_FLUSH_INTERVAL",
	"USAGE_RETENTION_DAYS",
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want func(*Config)
	}{
		{"nothing set", nil, func(*Config) {}},
		{"port", map[string]string{"PORT": "3000"}, func(c *Config) { c.Server.Port = "3000" }},
		{
			"storage",
			map[string]string{"STORAGE_TYPE": "postgresql", "POSTGRES_URL": "postgres://db/aihub", "POSTGRES_MAX_CONNS": "20"},
			func(c *Config) {
				c.Storage.Type = "postgresql"
				c.Storage.PostgreSQL.URL = "postgres://db/aihub"
				c.Storage.PostgreSQL.MaxConns = 20
			},
		},
		{
			"logging and metrics",
			map[string]string{"METRICS_ENABLED": "true", "LOG_LEVEL": "debug", "LOG_FORMAT": "json"},
			func(c *Config) {
				c.Metrics.Enabled = true
				c.Logging.Level = "debug"
				c.Logging.Format = "json"
			},
		},
		{
			"usage",
			map[string]string{"USAGE_ENABLED": "false", "USAGE_RETENTION_DAYS": "7"},
			func(c *Config) {
				c.Usage.Enabled = false
				c.Usage.RetentionDays = 7
			},
		},
		{
			"redis cache",
			map[string]string{"CACHE_TYPE": "redis", "REDIS_URL": "redis://cache:6379", "REDIS_TTL": "60", "CACHE_REFRESH_INTERVAL": "1800"},
			func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.Redis.URL = "redis://cache:6379"
				c.Cache.Redis.TTL = 60
				c.Cache.RefreshInterval = 1800
			},
		},
		{
			"http timeouts",
			map[string]string{"HTTP_TIMEOUT": "30", "HTTP_RESPONSE_HEADER_TIMEOUT": "45"},
			func(c *Config) {
				c.HTTP.Timeout = 30
				c.HTTP.ResponseHeaderTimeout = 45
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range overrideEnvs {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			want := buildDefaultConfig()
			tt.want(want)

			got := buildDefaultConfig()
			require.NoError(t, applyEnvOverrides(got))
			require.Equal(t, want, got)
		})
	}
}

func TestApplyEnvOverrides_InvalidNumber(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	err := applyEnvOverrides(buildDefaultConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP_TIMEOUT")
}
