package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_strings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_lists (
	key   TEXT      NOT NULL,
	seq   BIGSERIAL NOT NULL,
	value TEXT      NOT NULL,
	PRIMARY KEY (key, seq)
);

CREATE INDEX IF NOT EXISTS kv_lists_key_value_idx ON kv_lists (key, value);
`

// Postgres is a Store backed by two tables: kv_strings for documents and
// kv_lists for lists, where a higher seq means closer to the list head.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply kv schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_strings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store. Like Redis SET, it replaces a list stored at key.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM kv_lists WHERE key = $1`, key); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO kv_strings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`, key, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// Del implements Store.
func (p *Postgres) Del(ctx context.Context, key string) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM kv_strings WHERE key = $1`, key); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM kv_lists WHERE key = $1`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres del %s: %w", key, err)
	}
	return nil
}

// LPush implements Store.
func (p *Postgres) LPush(ctx context.Context, key, value string) (int64, error) {
	var length int64
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO kv_lists (key, value) VALUES ($1, $2)`, key, value); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `SELECT count(*) FROM kv_lists WHERE key = $1`, key).Scan(&length)
	})
	if err != nil {
		return 0, fmt.Errorf("postgres lpush %s: %w", key, err)
	}
	return length, nil
}

// LRange implements Store.
func (p *Postgres) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	from, to := start, stop+1
	if start < 0 || stop < 0 {
		var n int64
		if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM kv_lists WHERE key = $1`, key).Scan(&n); err != nil {
			return nil, fmt.Errorf("postgres lrange %s: %w", key, err)
		}
		from, to = normalizeRange(start, stop, n)
	}
	if to <= from {
		return []string{}, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT value FROM kv_lists
		WHERE key = $1
		ORDER BY seq DESC
		OFFSET $2 LIMIT $3
	`, key, from, to-from)
	if err != nil {
		return nil, fmt.Errorf("postgres lrange %s: %w", key, err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres lrange %s: %w", key, err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// LRem implements Store.
func (p *Postgres) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	order := "DESC"
	var limit *int64
	switch {
	case count > 0:
		limit = &count
	case count < 0:
		order = "ASC"
		n := -count
		limit = &n
	}

	// LIMIT NULL means no limit, which is LREM with count 0.
	query := `
		DELETE FROM kv_lists
		WHERE key = $1 AND seq IN (
			SELECT seq FROM kv_lists
			WHERE key = $1 AND value = $2
			ORDER BY seq ` + order + `
			LIMIT $3
		)
	`

	tag, err := p.pool.Exec(ctx, query, key, value, limit)
	if err != nil {
		return 0, fmt.Errorf("postgres lrem %s: %w", key, err)
	}
	return tag.RowsAffected(), nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
