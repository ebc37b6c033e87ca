package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ararat/reports/internal/database"
	"github.com/ararat/reports/internal/di"
	"github.com/ararat/reports/internal/scheduler"
	"github.com/ararat/reports/internal/storage"
)

// SystemHandlers serves health and job trigger endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	catalogDB *database.DB
	publisher storage.Publisher
	scheduler *scheduler.Scheduler
	jobs      *di.JobInstances
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, catalogDB *database.DB, publisher storage.Publisher) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		catalogDB: catalogDB,
		publisher: publisher,
		startedAt: time.Now(),
	}
}

// SetJobs registers the jobs that can be triggered manually
func (h *SystemHandlers) SetJobs(sched *scheduler.Scheduler, jobs *di.JobInstances) {
	h.scheduler = sched
	h.jobs = jobs
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	Goroutines    int     `json:"goroutines"`
	Catalog       string  `json:"catalog"`
	Storage       string  `json:"storage"`
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	resp := HealthResponse{
		Status:        "ok",
		Message:       "Report API is running",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		Catalog:       "disabled",
	}
	if h.publisher != nil {
		resp.Storage = h.publisher.Kind()
	}

	if h.catalogDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.catalogDB.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Catalog health check failed")
			resp.Status = "degraded"
			resp.Catalog = "error"
		} else {
			resp.Catalog = "ok"
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleTriggerDailyReport handles POST /api/jobs/daily-report
func (h *SystemHandlers) HandleTriggerDailyReport(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.triggerJob(w, nil)
		return
	}
	h.triggerJob(w, h.jobs.DailyReport)
}

// HandleTriggerMonthlyReport handles POST /api/jobs/monthly-report
func (h *SystemHandlers) HandleTriggerMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.triggerJob(w, nil)
		return
	}
	h.triggerJob(w, h.jobs.MonthlyReport)
}

// HandleTriggerCheckCatalog handles POST /api/jobs/check-catalog
func (h *SystemHandlers) HandleTriggerCheckCatalog(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.triggerJob(w, nil)
		return
	}
	h.triggerJob(w, h.jobs.CheckCatalog)
}

// HandleTriggerBackupCatalog handles POST /api/jobs/backup-catalog
func (h *SystemHandlers) HandleTriggerBackupCatalog(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.triggerJob(w, nil)
		return
	}
	h.triggerJob(w, h.jobs.BackupCatalog)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if h.scheduler == nil || job == nil {
		h.log.Warn().Msg("Job trigger requested before jobs were registered")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Jobs not registered",
		})
		return
	}

	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": job.Name() + " completed",
	})
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the probe responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
