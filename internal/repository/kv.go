// Package repository provides a PostgreSQL implementation of the key-value
// port used by the catalog, team and session stores.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresKV stores each key as one row of the kv table.
type PostgresKV struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresKV creates a PostgresKV over db.
// db must be a valid connection to a PostgreSQL instance with the kv table created.
func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{DB: db}
}

// Get fetches the value stored under key.
// It returns ok=false without an error when the key is absent.
func (s *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes every listed key in a single statement.
func (s *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}
