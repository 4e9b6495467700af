// Package cache wraps the Redis client used for the authorization cache, the
// context cache, credential lockout counters, and the sys-code distributed
// lock. Adapted from the teacher's pkg/storage/postgres RedisClient: the
// connection setup and the generic Incr/Expire/SetNX/GetDel/TTL primitives
// are unchanged in spirit, but the module/version-specific cache methods are
// replaced with the hash operations the IAM cache key layout needs.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config configures the Redis connection backing every cache in this module.
type Config struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// Client wraps a go-redis client with the operations the authorization
// engine's caches need.
type Client struct {
	redis *redis.Client
}

// New dials Redis and verifies connectivity.
func New(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{redis: client}, nil
}

// NewFromClient wraps an already-constructed redis.Client, used by tests
// against miniredis.
func NewFromClient(c *redis.Client) *Client {
	return &Client{redis: c}
}

func (c *Client) Raw() *redis.Client { return c.redis }

func (c *Client) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redis.Close()
}

func (c *Client) PoolStats() *redis.PoolStats {
	return c.redis.PoolStats()
}

// Get returns a string value, "" and no error on a cache miss.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.redis.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Incr increments a counter, used for rate limiting and lockout windows.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.redis.Incr(ctx, key).Result()
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.redis.Expire(ctx, key, ttl).Err()
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.redis.TTL(ctx, key).Result()
}

// SetNX sets a key only if absent, used for distributed locks.
func (c *Client) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return c.redis.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	return c.redis.GetDel(ctx, key).Result()
}

// HGet/HSet/HDel/HGetAll/HLen back the hash-shaped cache entries
// (iam:cache:account:info:*, iam:cache:account:rel:*, iam:cache:res).

func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := c.redis.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	return c.redis.HSet(ctx, key, field, value).Err()
}

func (c *Client) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return c.redis.HDel(ctx, key, fields...).Err()
}

func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.redis.HGetAll(ctx, key).Result()
}

func (c *Client) HLen(ctx context.Context, key string) (int64, error) {
	return c.redis.HLen(ctx, key).Result()
}

// InvalidatePatterns removes all keys matching the given SCAN patterns.
func (c *Client) InvalidatePatterns(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan failed for pattern %s: %w", pattern, err)
		}
	}
	return nil
}
