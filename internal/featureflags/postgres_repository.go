package featureflags

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the feature_flags table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS feature_flags (
			key        TEXT PRIMARY KEY,
			enabled    BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			updated_by TEXT NOT NULL DEFAULT '',
			reason     TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create feature_flags table: %w", err)
	}
	return nil
}

// List returns every stored state.
func (r *PostgresRepository) List(ctx context.Context) ([]State, error) {
	query := `
		SELECT key, enabled, updated_at, updated_by, reason
		FROM feature_flags
		ORDER BY key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select feature flags: %w", err)
	}

	states, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (State, error) {
		var s State
		err := row.Scan(&s.Key, &s.Enabled, &s.UpdatedAt, &s.UpdatedBy, &s.Reason)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan feature flags: %w", err)
	}
	return states, nil
}

// Upsert writes all states in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, states []State) error {
	query := `
		INSERT INTO feature_flags (key, enabled, updated_at, updated_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			enabled    = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by,
			reason     = EXCLUDED.reason
	`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range states {
			batch.Queue(query, s.Key, s.Enabled, s.UpdatedAt, s.UpdatedBy, s.Reason)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert feature flags: %w", err)
		}
		return nil
	})
}

var _ Repository = (*PostgresRepository)(nil)
