// Package storage owns the connection configuration shared by the Postgres
// and Redis backends underneath every IAM store (itemstore, relstore,
// certconf, token) and cache (pkg/cache, pkg/contextcache). It no longer
// defines a domain Storage interface: those stores take *sql.DB/*cache.Client
// directly rather than going through a schema-registry-shaped facade.
package storage

import "time"

// Config configures the Postgres and Redis connections, plus the RBAC
// defaults handed to new cert-confs and the own_paths allocator when none
// are supplied explicitly (SPEC_FULL.md §4.9 admin defaults).
type Config struct {
	Type string // "postgres" (only supported backend; kept for config-shape parity with the teacher)

	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs string // Comma-separated list of replica URLs
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	L1CacheSize  int // authengine.Cache L1 entry count (hashicorp/golang-lru)

	// S3 config for certconf.BackupClient's policy snapshot export/restore.
	// Optional: a blank S3Bucket means backups are disabled.
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	RBAC RBACConfig
}

// RBACConfig holds the defaults register_tenant/register_account fall back
// to when a request doesn't override them: the own_paths segment width
// (pkg/syscode), and the cert-conf lockout/coexistence parameters
// (pkg/certconf) seeded onto every tenant's default password cert-conf.
type RBACConfig struct {
	SegmentWidth int // own_paths/sys_code segment width, pkg/syscode.ValidateFormat requires [2,8]

	DefaultExpireSec         int // token TTL for a freshly issued cert-conf
	DefaultCoexistNum        int // max concurrent live tokens per account under one cert-conf
	DefaultSKLockCycleSec    int // sliding window, in seconds, that SKLockErrTimes is counted over
	DefaultSKLockErrTimes    int // failed verifications within the cycle before locking the secret
	DefaultSKLockDurationSec int // how long a locked secret stays locked
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Type:             "postgres",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     true,
		L1CacheSize:      4096,
		RBAC: RBACConfig{
			SegmentWidth:             4,
			DefaultExpireSec:         int((24 * time.Hour).Seconds()),
			DefaultCoexistNum:        5,
			DefaultSKLockCycleSec:    int((15 * time.Minute).Seconds()),
			DefaultSKLockErrTimes:    5,
			DefaultSKLockDurationSec: int((30 * time.Minute).Seconds()),
		},
	}
}
