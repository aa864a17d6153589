package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/config"
)

// Wire initializes all dependencies and returns a configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize clients and services
// Jobs are registered separately by the server.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	container, err := InitializeDatabases(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, sources, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed")
	return container, nil
}
