package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage is a PostgreSQL implementation of Storage.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL key-value storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

// EnsureSchema creates the key-value table if it does not exist.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Get returns the value stored under key.
func (s *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`

	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}

	return value, nil
}

// Put creates or replaces the value stored under key.
func (s *PostgresStorage) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, key, value, time.Now())
	return err
}

// Delete removes key.
func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

// Ensure PostgresStorage implements Storage interface.
var _ Storage = (*PostgresStorage)(nil)
