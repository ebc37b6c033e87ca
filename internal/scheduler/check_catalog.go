package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/database"
)

// largeWALFrames is the WAL size above which a truncating checkpoint is forced.
const largeWALFrames = 1000

// CheckCatalogJob verifies the catalog database and keeps its WAL small
type CheckCatalogJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCheckCatalogJob creates a new CheckCatalogJob
func NewCheckCatalogJob(db *database.DB, log zerolog.Logger) *CheckCatalogJob {
	return &CheckCatalogJob{
		db:  db,
		log: log.With().Str("job", "check_catalog").Logger(),
	}
}

// Name returns the job name
func (j *CheckCatalogJob) Name() string {
	return "check_catalog"
}

// Run executes the catalog check
func (j *CheckCatalogJob) Run() error {
	if j.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("Catalog integrity check failed")
		return err
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
		return nil
	}

	if frames > largeWALFrames {
		j.log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		return j.db.WALCheckpoint(ctx)
	}

	j.log.Debug().Int("wal_frames", frames).Msg("Catalog check completed")
	return nil
}
