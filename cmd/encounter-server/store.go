package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/encounters/internal/config"
	"github.com/ehr/encounters/internal/domain/encounter"
	"github.com/ehr/encounters/internal/platform/db"
)

// store is an opened encounter repository plus what is needed to check and
// release it.
type store struct {
	repo encounter.Repository
	// pinger is set for database backends that expose /health/db.
	pinger db.Pinger
	close  func()
}

func (s *store) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		applied, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("migrations_applied", applied).Msg("connected to database")
		return &store{repo: encounter.NewPGRepo(pool), pinger: pool, close: pool.Close}, nil

	case config.DriverSQLite:
		repo, err := encounter.NewSQLiteRepo(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &store{repo: repo, close: func() {
			if err := repo.Close(); err != nil {
				logger.Error().Err(err).Msg("close sqlite store")
			}
		}}, nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store; encounters are lost on restart")
		return &store{repo: encounter.NewMemoryRepo()}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
