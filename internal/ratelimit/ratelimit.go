// Package ratelimit provides fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Defaults for the public intake endpoint.
const (
	DefaultMax    = 5
	DefaultWindow = 60 * time.Second

	// UnknownClient is the key used when no client address can be found.
	// It is never limited.
	UnknownClient = "unknown"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the time until the window resets, rounded up to a second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Truncate(time.Second) + time.Second
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// ClientIP returns the first X-Forwarded-For entry, else X-Real-IP, else
// UnknownClient.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return UnknownClient
}
