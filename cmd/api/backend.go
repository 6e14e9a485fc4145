package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/api/handler"
	"github.com/prohealth/prohealth/internal/config"
	"github.com/prohealth/prohealth/internal/database"
	"github.com/prohealth/prohealth/internal/featureflags"
	"github.com/prohealth/prohealth/internal/history"
)

// backend bundles the persistence selected by HISTORY_BACKEND.
type backend struct {
	Storage history.Storage
	Flags   featureflags.Repository
	Checks  []handler.DependencyCheck
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.HistoryBackend {
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		storage := history.NewPostgresStorage(pool)
		if err := storage.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("history schema: %w", err)
		}
		flags := featureflags.NewPostgresRepository(pool)
		if err := flags.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("feature flag schema: %w", err)
		}

		return &backend{
			Storage: storage,
			Flags:   flags,
			Checks: []handler.DependencyCheck{
				{Name: "postgres", Check: pool.Ping},
			},
			closers: []func(){pool.Close},
		}, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.HistorySQLitePath)
		if err != nil {
			return nil, err
		}
		storage, err := history.NewSQLiteStorage(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.HistorySQLitePath).Msg("sqlite history opened")

		return &backend{
			Storage: storage,
			Flags:   featureflags.NewInMemoryRepository(),
			Checks: []handler.DependencyCheck{
				{Name: "sqlite", Check: db.PingContext},
			},
			closers: []func(){func() { _ = db.Close() }},
		}, nil

	default:
		log.Warn().Msg("using in-memory history - entries are lost on restart")
		return &backend{
			Storage: history.NewInMemoryStorage(),
			Flags:   featureflags.NewInMemoryRepository(),
		}, nil
	}
}
