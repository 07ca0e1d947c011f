package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a native Redis connection.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client. The caller owns the client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Del implements Store.
func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// LPush implements Store.
func (r *Redis) LPush(ctx context.Context, key, value string) (int64, error) {
	n, err := r.client.LPush(ctx, key, value).Result()
	if err != nil {
		return 0, fmt.Errorf("redis lpush %s: %w", key, err)
	}
	return n, nil
}

// LRange implements Store.
func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	items, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return items, nil
}

// LRem implements Store.
func (r *Redis) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	n, err := r.client.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, fmt.Errorf("redis lrem %s: %w", key, err)
	}
	return n, nil
}

// Ping implements Store.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close is a no-op; the shared client is closed by its owner.
func (r *Redis) Close() error {
	return nil
}
