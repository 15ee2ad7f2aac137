package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_PATH", "SERVER_PORT", "SERVER_HOST", "DATABASE_URL", "DATABASE_DRIVER",
	"LLM_PROVIDER", "LLM_MODEL", "GEMINI_API_KEY", "OPENROUTER_API_KEY",
	"REDIS_URL", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "microdata_op", cfg.Database.DatasetTable)
	assert.Equal(t, "codes", cfg.Database.CodesTable)
	assert.True(t, cfg.Reference.ResolveNames)
	assert.Len(t, cfg.CORS.AllowedOrigins, 4)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nss.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: postgres
  dsn: postgres://u:p@localhost/nss
  dataset_table: survey.microdata_op
reference:
  resolve_names: false
llm:
  provider: static
  static_reply: '{"sector":"Urban"}'
sessions:
  max_turns: 5
  ttl: 30m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "survey.microdata_op", cfg.Database.DatasetTable)
	assert.Equal(t, "codes", cfg.Database.CodesTable)
	assert.False(t, cfg.Reference.ResolveNames)
	assert.Equal(t, "static", cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.Sessions.MaxTurns)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
}

func TestLoad_ExampleConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "..", "configs", "nss.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Reference.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Reference.Cache.TTL)
	assert.Equal(t, 2.0, cfg.LLM.RateLimit)
	assert.Len(t, cfg.CORS.AllowedOrigins, 4)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("DATABASE_URL", "mysql://root:pw@db:3306/nss")
	t.Setenv("LLM_PROVIDER", "OpenRouter")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("GEMINI_API_KEY", "gemini-test")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "root:pw@tcp(db:3306)/nss")
	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "eighty")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"dataset table", func(c *Config) { c.Database.DatasetTable = "" }},
		{"codes table", func(c *Config) { c.Database.CodesTable = "bad\x00name" }},
		{"provider", func(c *Config) { c.LLM.Provider = "llama" }},
		{"retries", func(c *Config) { c.LLM.MaxRetries = -1 }},
		{"cache", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"max turns", func(c *Config) { c.Sessions.MaxTurns = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/etc/nss/nss.db", ResolveRelativePath("/etc/nss/config.yaml", "nss.db"))
	assert.Equal(t, "/data/nss.db", ResolveRelativePath("/etc/nss/config.yaml", "/data/nss.db"))
}
