package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/storage/postgres"
)

// InitializeDatabases opens the cache database and the holdings store.
// holdings.db is used unless cfg.DatabaseURL selects PostgreSQL.
func InitializeDatabases(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{log: log}
	policy := database.RetryPolicy{Attempts: cfg.Snapshot.RetryAttempts, Backoff: cfg.Snapshot.RetryBackoff}

	// cache.db - last known quotes, disposable
	cacheDB, err := database.Open(ctx, database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	}, policy, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			cacheDB.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			cacheDB.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		container.Postgres = pg
		log.Info().Msg("Using PostgreSQL holdings store")
		return container, nil
	}

	// holdings.db - users, positions and daily snapshots
	holdingsDB, err := database.Open(ctx, database.Config{
		Path:    cfg.SQLitePath(),
		Profile: database.ProfileStandard,
		Name:    "holdings",
	}, policy, log)
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to initialize holdings database: %w", err)
	}
	container.HoldingsDB = holdingsDB
	log.Info().Str("path", holdingsDB.Path()).Msg("Using sqlite holdings store")

	return container, nil
}
