package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStorage is a Storage backed by a local SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage wraps an open SQLite handle and creates the key-value
// table if needed.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	s := &SQLiteStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get returns the value stored under key.
func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

// Put upserts the value in a single statement.
func (s *SQLiteStorage) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ensure SQLiteStorage implements Storage interface.
var _ Storage = (*SQLiteStorage)(nil)
