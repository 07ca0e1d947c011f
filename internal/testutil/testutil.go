package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetKVTables empties the Postgres kv driver tables if they exist.
func ResetKVTables(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"kv_strings", "kv_lists"} {
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
			return fmt.Errorf("check %s: %w", table, err)
		}
		if !exists {
			continue
		}
		if _, err := pool.Exec(ctx, "TRUNCATE "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a starter-plan user whose trial began at trialStart.
func NewTestUser(t testing.TB, email string, trialStart time.Time) *model.User {
	t.Helper()
	return &model.User{
		Email:      email,
		Name:       "Test Owner",
		Plan:       model.PlanStarter,
		TrialStart: trialStart.UnixMilli(),
		TrialDays:  model.DefaultTrialDays,
		CreatedAt:  trialStart.UnixMilli(),
	}
}

// SeedUser stores a user with an active trial and returns it.
func SeedUser(t testing.TB, repo *repository.Repository, email string) *model.User {
	t.Helper()
	user := NewTestUser(t, email, time.Now())
	if err := repo.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

// SeedExpiredUser stores a user whose trial ended before now.
func SeedExpiredUser(t testing.TB, repo *repository.Repository, email string) *model.User {
	t.Helper()
	user := NewTestUser(t, email, time.Now().AddDate(0, 0, -30))
	if err := repo.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueEmail generates a unique address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
