package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/looply/looply/internal/ratelimit"
)

// rateLimitIPPrefix is the Redis key prefix for IP rate limits.
const rateLimitIPPrefix = "ratelimit:ip:"

// fixedWindowScript counts a hit and starts the window on the first one.
// It returns the hit count and the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_ms = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end

	local ttl = redis.call('PTTL', key)
	if ttl < 0 then
		redis.call('PEXPIRE', key, window_ms)
		ttl = window_ms
	end

	return {count, ttl}
`)

// RateLimiter is a fixed-window limiter shared by every instance using the
// same Redis. It implements ratelimit.Limiter.
type RateLimiter struct {
	cache  *Cache
	max    int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per period.
func NewRateLimiter(c *Cache, limit int, period time.Duration, logger *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = ratelimit.DefaultMax
	}
	if period <= 0 {
		period = ratelimit.DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		cache:  c,
		max:    limit,
		window: period,
		logger: logger,
		now:    time.Now,
	}
}

// Allow counts one request for key. The key is hashed before it reaches Redis.
// Redis errors are logged and the request is allowed.
func (l *RateLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	now := l.now()

	result, err := fixedWindowScript.Run(ctx, l.cache.client,
		[]string{rateLimitIPPrefix + hashIP(key)},
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil || len(result) != 2 {
		// Fail open on Redis errors - allow the request
		l.logger.Warn("rate limit check failed, allowing request", slog.Any("error", err))
		return ratelimit.Result{
			Allowed:   true,
			Limit:     l.max,
			Remaining: l.max,
			ResetAt:   now.Add(l.window),
		}, nil
	}

	count := int(result[0])
	return ratelimit.Result{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: max(l.max-count, 0),
		ResetAt:   now.Add(time.Duration(result[1]) * time.Millisecond),
	}, nil
}

// hashIP creates a truncated SHA256 hash of an IP address.
// This provides privacy while maintaining uniqueness.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
