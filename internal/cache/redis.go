// Package cache provides the shared Redis connection used for cross-instance
// rate limiting and, with KV_DRIVER=redis, as the record store.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool sizing for a single API instance. Every request touches Redis at
// most a handful of times, so a small pool is enough.
const (
	poolSize        = 10
	minIdleConns    = 2
	poolTimeout     = 4 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// Cache owns the Redis client shared by the KV driver and the rate limiter.
type Cache struct {
	client *redis.Client
}

// ParseOptions turns a redis:// or rediss:// URL into client options with
// the pool settings applied. URL query parameters override them.
func ParseOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL %s: %w", RedactURL(redisURL), err)
	}

	q := parseQuery(redisURL)
	if !q.Has("pool_size") {
		opt.PoolSize = poolSize
	}
	if !q.Has("min_idle_conns") {
		opt.MinIdleConns = minIdleConns
	}
	if !q.Has("pool_timeout") {
		opt.PoolTimeout = poolTimeout
	}
	if !q.Has("conn_max_idle_time") {
		opt.ConnMaxIdleTime = connMaxIdleTime
	}
	return opt, nil
}

func parseQuery(raw string) url.Values {
	u, err := url.Parse(raw)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := ParseOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping Redis at %s: %w", RedactURL(redisURL), err)
	}
	return &Cache{client: client}, nil
}

// Ping implements the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the connection to the Redis KV driver.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// RedactURL hides the password of a connection URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
