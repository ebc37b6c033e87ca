package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/reliability"
)

// BackupCatalogJob archives the catalog database and rotates old archives
type BackupCatalogJob struct {
	backups       *reliability.BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupCatalogJob creates a new BackupCatalogJob
func NewBackupCatalogJob(backups *reliability.BackupService, retentionDays int, log zerolog.Logger) *BackupCatalogJob {
	return &BackupCatalogJob{
		backups:       backups,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup_catalog").Logger(),
	}
}

// Name returns the job name
func (j *BackupCatalogJob) Name() string {
	return "backup_catalog"
}

// Run creates, verifies and rotates catalog backups
func (j *BackupCatalogJob) Run() error {
	if j.backups == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	name, err := j.backups.CreateBackup(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Catalog backup failed")
		return err
	}
	if _, err := j.backups.VerifyBackup(name); err != nil {
		return fmt.Errorf("backup %s failed verification: %w", name, err)
	}

	if _, err := j.backups.RotateOldBackups(j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
