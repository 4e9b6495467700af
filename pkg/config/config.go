package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ironvault/sentryiam/pkg/observability"
	"github.com/ironvault/sentryiam/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SPOKE_HOST", "0.0.0.0"),
		Port:            getEnv("SPOKE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SPOKE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SPOKE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SPOKE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SPOKE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SPOKE_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	if pgURL := getEnv("SPOKE_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if replicaURLs := getEnv("SPOKE_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = replicaURLs
	}
	if maxConns := getEnvInt("SPOKE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("SPOKE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("SPOKE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	if redisURL := getEnv("SPOKE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("SPOKE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("SPOKE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("SPOKE_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("SPOKE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// Cache config
	if cacheEnabled := getEnv("SPOKE_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if l1CacheSize := getEnvInt("SPOKE_L1_CACHE_SIZE", 0); l1CacheSize > 0 {
		cfg.L1CacheSize = l1CacheSize
	}

	// RBAC defaults, seeded onto every tenant's default cert-conf and onto
	// the own_paths allocator when register_tenant/register_account don't
	// override them.
	if segWidth := getEnvInt("SPOKE_RBAC_SEGMENT_WIDTH", 0); segWidth > 0 {
		cfg.RBAC.SegmentWidth = segWidth
	}
	if expireSec := getEnvInt("SPOKE_RBAC_EXPIRE_SEC", 0); expireSec > 0 {
		cfg.RBAC.DefaultExpireSec = expireSec
	}
	if coexistNum := getEnvInt("SPOKE_RBAC_COEXIST_NUM", 0); coexistNum > 0 {
		cfg.RBAC.DefaultCoexistNum = coexistNum
	}
	if lockCycle := getEnvInt("SPOKE_RBAC_SK_LOCK_CYCLE_SEC", 0); lockCycle > 0 {
		cfg.RBAC.DefaultSKLockCycleSec = lockCycle
	}
	if lockErrTimes := getEnvInt("SPOKE_RBAC_SK_LOCK_ERR_TIMES", 0); lockErrTimes > 0 {
		cfg.RBAC.DefaultSKLockErrTimes = lockErrTimes
	}
	if lockDuration := getEnvInt("SPOKE_RBAC_SK_LOCK_DURATION_SEC", 0); lockDuration > 0 {
		cfg.RBAC.DefaultSKLockDurationSec = lockDuration
	}

	// S3, for certconf.BackupClient's cert-conf policy snapshot export. A
	// blank bucket leaves backups disabled.
	cfg.S3Endpoint = getEnv("SPOKE_S3_ENDPOINT", "")
	cfg.S3Region = getEnv("SPOKE_S3_REGION", "us-east-1")
	cfg.S3Bucket = getEnv("SPOKE_S3_BUCKET", "")
	cfg.S3AccessKey = getEnv("SPOKE_S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("SPOKE_S3_SECRET_KEY", "")
	cfg.S3UsePathStyle = getEnvBool("SPOKE_S3_USE_PATH_STYLE", false)

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SPOKE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SPOKE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SPOKE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SPOKE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SPOKE_OTEL_SERVICE_NAME", "sentryiam"),
		OTelServiceVersion: getEnv("SPOKE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SPOKE_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.RBAC.SegmentWidth < 2 || c.Storage.RBAC.SegmentWidth > 8 {
		return fmt.Errorf("RBAC segment width must be between 2 and 8")
	}

	// Validate OpenTelemetry config
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

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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
