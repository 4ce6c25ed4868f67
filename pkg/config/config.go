package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Cache drivers for the route access snapshot
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Auth          AuthConfig          `yaml:"auth"`
	Activity      ActivityConfig      `yaml:"activity"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// CacheConfig configures the route access snapshot cache
type CacheConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`

	// Broadcast publishes invalidations to other instances over Redis pub/sub
	Broadcast bool `yaml:"broadcast"`
}

// AuthConfig holds session, throttle and bootstrap account settings
type AuthConfig struct {
	SessionTTL       time.Duration `yaml:"session_ttl"`
	LoginMaxAttempts int           `yaml:"login_max_attempts"`
	LoginWindow      time.Duration `yaml:"login_window"`

	// Initial bypass-role account created by the seeder
	AdminName     string `yaml:"admin_name"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// ActivityConfig controls activity log retention
type ActivityConfig struct {
	RetentionDays  int    `yaml:"retention_days"`
	ArchiveEnabled bool   `yaml:"archive_enabled"`
	ArchivePrefix  string `yaml:"archive_prefix"`
}

// SchedulerConfig holds cron expressions for admin-scheduler jobs
type SchedulerConfig struct {
	PruneSchedule          string `yaml:"prune_schedule"`
	RelinkSchedule         string `yaml:"relink_schedule"`
	SessionCleanupSchedule string `yaml:"session_cleanup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the built-in configuration before file and environment overrides
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Cache: CacheConfig{
			Driver: CacheDriverMemory,
			TTL:    5 * time.Minute,
		},
		Auth: AuthConfig{
			SessionTTL:       24 * time.Hour,
			LoginMaxAttempts: 5,
			LoginWindow:      time.Minute,
			AdminName:        "Super Admin",
			AdminEmail:       "admin@example.com",
		},
		Activity: ActivityConfig{
			RetentionDays: 365,
			ArchivePrefix: "activity-archive/",
		},
		Scheduler: SchedulerConfig{
			PruneSchedule:          "0 3 * * *",
			RelinkSchedule:         "*/30 * * * *",
			SessionCleanupSchedule: "@hourly",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "admin-server",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds configuration from defaults, the optional YAML file named
// by ADMIN_CONFIG_FILE, then ADMIN_* environment variables, and validates it.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("ADMIN_CONFIG_FILE", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// document keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("ADMIN_HOST", s.Host)
	s.Port = getEnv("ADMIN_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("ADMIN_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("ADMIN_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("ADMIN_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("ADMIN_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("ADMIN_HEALTH_PORT", s.HealthPort)

	st := &c.Storage
	st.Driver = getEnv("ADMIN_DB_DRIVER", st.Driver)
	st.DatabaseURL = getEnv("ADMIN_DB_URL", st.DatabaseURL)
	if replicas := getEnv("ADMIN_DB_REPLICA_URLS", ""); replicas != "" {
		st.ReplicaURLs = storage.ParseReplicaURLs(replicas)
	}
	st.MaxConns = getEnvInt("ADMIN_DB_MAX_CONNS", st.MaxConns)
	st.MinConns = getEnvInt("ADMIN_DB_MIN_CONNS", st.MinConns)
	st.Timeout = getEnvDuration("ADMIN_DB_TIMEOUT", st.Timeout)
	st.RedisURL = getEnv("ADMIN_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("ADMIN_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("ADMIN_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("ADMIN_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("ADMIN_REDIS_POOL_SIZE", st.RedisPoolSize)
	st.S3Endpoint = getEnv("ADMIN_S3_ENDPOINT", st.S3Endpoint)
	st.S3Region = getEnv("ADMIN_S3_REGION", st.S3Region)
	st.S3Bucket = getEnv("ADMIN_S3_BUCKET", st.S3Bucket)
	st.S3AccessKey = getEnv("ADMIN_S3_ACCESS_KEY", st.S3AccessKey)
	st.S3SecretKey = getEnv("ADMIN_S3_SECRET_KEY", st.S3SecretKey)
	st.S3UsePathStyle = getEnvBool("ADMIN_S3_USE_PATH_STYLE", st.S3UsePathStyle)

	c.Cache.Driver = getEnv("ADMIN_CACHE_DRIVER", c.Cache.Driver)
	c.Cache.TTL = getEnvDuration("ADMIN_CACHE_TTL", c.Cache.TTL)
	c.Cache.Broadcast = getEnvBool("ADMIN_CACHE_BROADCAST", c.Cache.Broadcast)

	a := &c.Auth
	a.SessionTTL = getEnvDuration("ADMIN_SESSION_TTL", a.SessionTTL)
	a.LoginMaxAttempts = getEnvInt("ADMIN_LOGIN_MAX_ATTEMPTS", a.LoginMaxAttempts)
	a.LoginWindow = getEnvDuration("ADMIN_LOGIN_WINDOW", a.LoginWindow)
	a.AdminName = getEnv("ADMIN_SEED_NAME", a.AdminName)
	a.AdminEmail = getEnv("ADMIN_SEED_EMAIL", a.AdminEmail)
	a.AdminPassword = getEnv("ADMIN_SEED_PASSWORD", a.AdminPassword)

	c.Activity.RetentionDays = getEnvInt("ADMIN_ACTIVITY_RETENTION_DAYS", c.Activity.RetentionDays)
	c.Activity.ArchiveEnabled = getEnvBool("ADMIN_ACTIVITY_ARCHIVE", c.Activity.ArchiveEnabled)
	c.Activity.ArchivePrefix = getEnv("ADMIN_ACTIVITY_ARCHIVE_PREFIX", c.Activity.ArchivePrefix)

	c.Scheduler.PruneSchedule = getEnv("ADMIN_SCHEDULE_PRUNE", c.Scheduler.PruneSchedule)
	c.Scheduler.RelinkSchedule = getEnv("ADMIN_SCHEDULE_RELINK", c.Scheduler.RelinkSchedule)
	c.Scheduler.SessionCleanupSchedule = getEnv("ADMIN_SCHEDULE_SESSION_CLEANUP", c.Scheduler.SessionCleanupSchedule)

	o := &c.Observability
	o.LogLevel = getEnv("ADMIN_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("ADMIN_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("ADMIN_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("ADMIN_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("ADMIN_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("ADMIN_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("ADMIN_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis cache driver")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s (must be memory or redis)", c.Cache.Driver)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Cache.Broadcast && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required for cache invalidation broadcast")
	}

	if c.Activity.ArchiveEnabled && c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when activity archiving is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
