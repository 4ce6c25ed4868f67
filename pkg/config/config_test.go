package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, time.Minute, cfg.Auth.LoginWindow)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ADMIN_PORT", "8000")
	t.Setenv("ADMIN_DB_DRIVER", "postgres")
	t.Setenv("ADMIN_DB_URL", "postgres://localhost/admin")
	t.Setenv("ADMIN_DB_REPLICA_URLS", "postgres://r1/admin, postgres://r2/admin")
	t.Setenv("ADMIN_REDIS_URL", "redis://localhost:6379")
	t.Setenv("ADMIN_CACHE_DRIVER", "redis")
	t.Setenv("ADMIN_CACHE_TTL", "90s")
	t.Setenv("ADMIN_CACHE_BROADCAST", "1")
	t.Setenv("ADMIN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, []string{"postgres://r1/admin", "postgres://r2/admin"}, cfg.Storage.ReplicaURLs)
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Broadcast)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
cache:
  ttl: 2m
activity:
  retention_days: 30
auth:
  login_max_attempts: 3
`), 0o600))

	t.Setenv("ADMIN_CONFIG_FILE", path)
	t.Setenv("ADMIN_PORT", "7100")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port, "environment wins over file")
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30, cfg.Activity.RetentionDays)
	assert.Equal(t, 3, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, "9090", cfg.Server.HealthPort, "absent keys keep defaults")
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("ADMIN_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	t.Setenv("ADMIN_CONFIG_FILE", path)
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"equal ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "invalid database driver"},
		{"postgres without url", func(c *Config) {
			c.Storage.Driver = storage.DriverPostgres
			c.Storage.DatabaseURL = ""
		}, "database URL is required"},
		{"redis cache without url", func(c *Config) { c.Cache.Driver = CacheDriverRedis }, "redis URL is required"},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "invalid cache driver"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache TTL must be positive"},
		{"broadcast without redis", func(c *Config) { c.Cache.Broadcast = true }, "invalidation broadcast"},
		{"archive without bucket", func(c *Config) { c.Activity.ArchiveEnabled = true }, "S3 bucket is required"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "twelve")
	t.Setenv("TEST_DURATION", "3s")
	t.Setenv("TEST_BOOL", "TRUE")

	assert.Equal(t, 12, getEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("TEST_BAD_INT", 1))
	assert.Equal(t, 3*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_VALUE", "fallback"))
}
