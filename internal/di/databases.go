package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/database"
	"github.com/ararat/reports/internal/reliability"
)

// InitializeDatabases opens the catalog database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{ReportsDir: cfg.ReportsDir}

	catalogDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "catalog.db"),
		Name: "catalog",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	if err := catalogDB.Migrate(); err != nil {
		catalogDB.Close()
		return nil, fmt.Errorf("failed to migrate catalog database: %w", err)
	}
	container.CatalogDB = catalogDB
	container.Backups = reliability.NewBackupService(catalogDB, filepath.Join(cfg.DataDir, "backups"), log)

	log.Info().Str("path", catalogDB.Path()).Msg("Catalog database initialized")
	return container, nil
}
