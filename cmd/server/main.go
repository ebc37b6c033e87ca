// Package main is the entry point for the shop report API.
//
// The server extracts shop records from the document store, renders
// spreadsheet reports on demand and publishes them to object storage.
// When enabled, a scheduler also produces the daily and monthly reports.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/di"
	"github.com/ararat/reports/internal/scheduler"
	"github.com/ararat/reports/internal/server"
	"github.com/ararat/reports/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires dependencies (catalog database, record store, storage, report service)
// 4. Registers scheduled jobs when enabled
// 5. Starts the HTTP server and waits for a shutdown signal
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("reports_dir", cfg.ReportsDir).Msg("Starting report API")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout+30*time.Second)
	container, jobs, err := di.Wire(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close(log)

	sched := scheduler.New(log)
	if cfg.Scheduler.Enabled {
		registerJobs(sched, cfg.Scheduler, jobs, log)
		sched.Start()
	} else {
		log.Info().Msg("Scheduler disabled, reports are generated on demand only")
	}

	srv := server.New(server.Config{
		Log:       log,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,

		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv.SetJobs(sched, jobs)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if cfg.Scheduler.Enabled {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, cfg config.SchedulerConfig, jobs *di.JobInstances, log zerolog.Logger) {
	entries := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.DailySchedule, jobs.DailyReport},
		{cfg.MonthlySchedule, jobs.MonthlyReport},
		{"0 0 */6 * * *", jobs.CheckCatalog},
		{cfg.BackupSchedule, jobs.BackupCatalog},
	}
	for _, e := range entries {
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			log.Fatal().Err(err).Str("job", e.job.Name()).Str("schedule", e.schedule).Msg("Invalid job schedule")
		}
	}
}
