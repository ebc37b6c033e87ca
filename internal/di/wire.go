package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize databases
// 2. Initialize clients and services
// 3. Register jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close(log)
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs := RegisterJobs(container, cfg, log)

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, jobs, nil
}

// Close releases the record store and the catalog database
func (c *Container) Close(log zerolog.Logger) {
	if c.RecordStore != nil {
		if err := c.RecordStore.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close record store")
		}
	}
	if c.CatalogDB != nil {
		if err := c.CatalogDB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close catalog database")
		}
	}
}
