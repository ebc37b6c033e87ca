package di

import (
	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/scheduler"
)

// RegisterJobs creates the scheduled jobs
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	return &JobInstances{
		DailyReport:   scheduler.NewDailyReportJob(container.ReportService, log),
		MonthlyReport: scheduler.NewMonthlyReportJob(container.ReportService, log),
		CheckCatalog:  scheduler.NewCheckCatalogJob(container.CatalogDB, log),
		BackupCatalog: scheduler.NewBackupCatalogJob(container.Backups, cfg.Scheduler.BackupRetentionDays, log),
	}
}
