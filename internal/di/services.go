package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/catalog"
	"github.com/ararat/reports/internal/modules/extraction"
	"github.com/ararat/reports/internal/modules/reports"
	"github.com/ararat/reports/internal/storage"
	"github.com/ararat/reports/internal/store"
)

// InitializeServices connects the external clients and builds the report pipeline
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	recordStore, err := store.New(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}
	container.RecordStore = recordStore

	publisher, err := storage.New(ctx, cfg.Storage, cfg.ReportsDir, log)
	if err != nil {
		return fmt.Errorf("failed to initialize report storage: %w", err)
	}
	container.Publisher = publisher

	container.CatalogRepo = catalog.NewRepository(container.CatalogDB.Conn(), log)
	container.Extractor = extraction.NewExtractor(recordStore, cfg.Store.Timeout, log)
	container.Engine = analytics.NewEngine(cfg.BenefitMargin)
	container.ReportService = reports.NewService(
		container.Extractor,
		container.Engine,
		container.Publisher,
		container.CatalogRepo,
		cfg.ReportsDir,
		log,
	)

	log.Info().
		Str("store", cfg.Store.Driver).
		Str("storage", publisher.Kind()).
		Str("margin", container.Engine.Margin.String()).
		Msg("Services initialized")
	return nil
}
