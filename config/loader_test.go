package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 9090
  read_timeout: 10s
llm:
  model: gpt-4o
  timeout: 45s
session:
  backend: redis
  redis_addr: redis.internal:6379
rate_limit:
  enabled: true
  rps: 25
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Session.RedisAddr)
	assert.Equal(t, float64(25), cfg.RateLimit.RPS)

	// untouched keys keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/does/not/exist.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 9090
llm:
  model: gpt-4o
`)
	t.Setenv("TRIPFLOW_SERVER_HTTP_PORT", "7070")
	t.Setenv("TRIPFLOW_LLM_API_KEY", "sk-test")
	t.Setenv("TRIPFLOW_LLM_TIMEOUT", "90s")
	t.Setenv("TRIPFLOW_RATE_LIMIT_ENABLED", "true")
	t.Setenv("TRIPFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/tripflow.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort, "env wins over file")
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "file wins over defaults")
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/tripflow.log"}, cfg.Log.OutputPaths)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("TRIPFLOW_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIPFLOW_SERVER_HTTP_PORT")
}

func TestInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoaderValidators(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm model must be set"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "cassandra" }, "unknown session backend"},
		{"rate limit without rps", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RPS = 0
		}, "rate limit rps must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
