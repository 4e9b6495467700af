package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ironvault/sentryiam/pkg/storage"
)

// PostgresStorage owns the primary/replica Postgres connection pool and the
// Redis connection the IAM stores and caches run against. It no longer owns
// any domain CRUD itself: itemstore.Store, relstore.Store, certconf.Store
// and token.Store each take the *sql.DB this type hands out directly, and
// pkg/cache.Client/pkg/contextcache.Cache take the Redis connection the same
// way, matching how the teacher's connection manager was always meant to be
// a shared handle rather than an all-in-one storage facade.
type PostgresStorage struct {
	connManager *ConnectionManager
	db          *sql.DB
	redisClient *RedisClient
	config      storage.Config
}

// NewPostgresStorage dials Postgres (primary + any replicas) and, if
// configured, Redis.
func NewPostgresStorage(config storage.Config) (*PostgresStorage, error) {
	connConfig := ConnectionConfig{
		PrimaryURL:  config.PostgresURL,
		ReplicaURLs: ParseReplicaURLs(config.PostgresReplicaURLs),
		MaxConns:    config.PostgresMaxConns,
		MinConns:    config.PostgresMinConns,
		Timeout:     config.PostgresTimeout,
		MaxLifetime: 1 * time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}

	connManager, err := NewConnectionManager(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}

	db := connManager.Primary()

	var redisClient *RedisClient
	if config.CacheEnabled && config.RedisURL != "" {
		redisClient, err = NewRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
	}

	return &PostgresStorage{
		connManager: connManager,
		db:          db,
		redisClient: redisClient,
		config:      config,
	}, nil
}

// InvalidateCache removes Redis keys matching the given patterns.
func (s *PostgresStorage) InvalidateCache(ctx context.Context, patterns ...string) error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.InvalidatePatterns(ctx, patterns...)
}

func (s *PostgresStorage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// GetDB returns the primary database connection. All of the IAM stores
// (itemstore, relstore, certconf, token) are constructed directly from this.
func (s *PostgresStorage) GetDB() *sql.DB {
	return s.db
}

// GetRedis returns the Redis client (nil if caching isn't configured).
func (s *PostgresStorage) GetRedis() *RedisClient {
	return s.redisClient
}

// GetConnectionManager returns the connection manager.
func (s *PostgresStorage) GetConnectionManager() *ConnectionManager {
	return s.connManager
}

// Primary returns the primary database connection (for writes).
func (s *PostgresStorage) Primary() *sql.DB {
	return s.connManager.Primary()
}

// Replica returns a read replica connection, falling back to primary if
// none are configured.
func (s *PostgresStorage) Replica() *sql.DB {
	return s.connManager.Replica()
}

// Close closes all connections.
func (s *PostgresStorage) Close() error {
	if s.connManager != nil {
		s.connManager.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	return nil
}
