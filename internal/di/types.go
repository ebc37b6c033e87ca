// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/ararat/reports/internal/database"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/catalog"
	"github.com/ararat/reports/internal/modules/extraction"
	"github.com/ararat/reports/internal/modules/reports"
	"github.com/ararat/reports/internal/reliability"
	"github.com/ararat/reports/internal/scheduler"
	"github.com/ararat/reports/internal/storage"
	"github.com/ararat/reports/internal/store"
)

// Container holds all dependencies for the application.
//
// It is created by Wire and passed to the server and the CLI; nothing in it is
// a process-wide singleton.
type Container struct {
	// Databases
	CatalogDB *database.DB // Generated report catalog

	// Clients
	RecordStore store.RecordStore // Shop document store
	Publisher   storage.Publisher // Report storage (S3 or local directory)

	// Repositories
	CatalogRepo *catalog.Repository

	// Services
	Extractor     *extraction.Extractor
	Engine        *analytics.Engine
	ReportService *reports.Service
	Backups       *reliability.BackupService

	ReportsDir string
}

// JobInstances holds the scheduled jobs
type JobInstances struct {
	DailyReport   *scheduler.DailyReportJob
	MonthlyReport *scheduler.MonthlyReportJob
	CheckCatalog  *scheduler.CheckCatalogJob
	BackupCatalog *scheduler.BackupCatalogJob
}
