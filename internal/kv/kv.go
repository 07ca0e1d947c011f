// Package kv provides the key-value store used for lightweight persistence.
//
// The command surface mirrors the subset of Redis used by the application:
// get, set, del, lpush, lrange and lrem. Several drivers implement it: the
// REST protocol of hosted KV services, native Redis, Postgres tables and a
// process-local map.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the store has no endpoint or credentials.
var ErrNotConfigured = errors.New("storage_not_configured")

// Store is the key-value command surface.
type Store interface {
	// Get returns the value stored at key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
	// LPush prepends value to the list at key and returns the new length.
	LPush(ctx context.Context, key, value string) (int64, error)
	// LRange returns elements start..stop inclusive, Redis index semantics.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LRem removes occurrences of value: count > 0 from head, count < 0 from tail, 0 all.
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// IsConfigured reports whether s can serve commands. Drivers that cannot
// be unconfigured always report true.
func IsConfigured(s Store) bool {
	if c, ok := s.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return s != nil
}

// GetJSON loads key and decodes it into dest.
// A missing key or an undecodable document both report found=false.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, nil //nolint:nilerr
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// normalizeRange converts Redis-style inclusive indexes (negative counts from
// the tail) into a half-open [from, to) slice range for a list of length n.
func normalizeRange(start, stop, n int64) (from, to int64) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0
	}
	return start, stop + 1
}
