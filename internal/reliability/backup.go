// Package reliability keeps local archives of the report catalog database.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	archivePrefix    = "catalog-backup-"
	archiveSuffix    = ".tar.gz"
	archiveTimestamp = "2006-01-02-150405"
	metadataFile     = "backup-metadata.json"

	// minBackupsToKeep survive rotation regardless of age.
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database to a new file.
type Snapshotter interface {
	BackupTo(ctx context.Context, dest string) error
	Name() string
}

// BackupMetadata is stored inside every archive.
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo describes one archive in the backup directory.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService archives the catalog database into a local directory.
type BackupService struct {
	db  Snapshotter
	dir string
	now func() time.Time
	log zerolog.Logger
}

// NewBackupService creates a backup service writing archives to dir.
func NewBackupService(db Snapshotter, dir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:  db,
		dir: dir,
		now: time.Now,
		log: log.With().Str("service", "catalog_backup").Logger(),
	}
}

// CreateBackup snapshots the database and packs it with its metadata into a tar.gz archive.
// It returns the archive file name.
func (s *BackupService) CreateBackup(ctx context.Context) (string, error) {
	started := s.now().UTC()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	stagingDir, err := os.MkdirTemp(s.dir, "staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	dbFile := s.db.Name() + ".db"
	dbPath := filepath.Join(stagingDir, dbFile)
	if err := s.db.BackupTo(ctx, dbPath); err != nil {
		return "", err
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := fileChecksum(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: started,
		Database:  s.db.Name(),
		Filename:  dbFile,
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}
	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := fmt.Sprintf("%s%s-%s%s", archivePrefix, started.Format(archiveTimestamp), uuid.NewString()[:8], archiveSuffix)
	tmpArchive := filepath.Join(stagingDir, archiveName)
	if err := createArchive(tmpArchive, stagingDir, []string{dbFile, metadataFile}); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	if err := os.Rename(tmpArchive, filepath.Join(s.dir, archiveName)); err != nil {
		return "", fmt.Errorf("failed to move archive: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("db_bytes", info.Size()).
		Dur("duration", s.now().UTC().Sub(started)).
		Msg("Catalog backup created")
	return archiveName, nil
}

// ListBackups returns the archives in the backup directory, newest first.
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		ts, err := archiveTime(name)
		if err != nil {
			s.log.Warn().Str("filename", name).Msg("Failed to parse timestamp from backup name")
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  name,
			Timestamp: ts,
			SizeBytes: info.Size(),
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Timestamp.After(backups[j].Timestamp)
		}
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// RotateOldBackups deletes archives older than retentionDays, always keeping the
// newest few. A retention of 0 keeps everything. It returns the number deleted.
func (s *BackupService) RotateOldBackups(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.log.Error().Err(err).Str("filename", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("Backup rotation completed")
	return deleted, nil
}

// VerifyBackup checks that an archive holds a snapshot matching its recorded checksum.
func (s *BackupService) VerifyBackup(filename string) (BackupMetadata, error) {
	var metadata BackupMetadata

	f, err := os.Open(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return metadata, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return metadata, fmt.Errorf("invalid archive: %w", err)
	}
	defer gz.Close()

	sums := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return metadata, fmt.Errorf("invalid archive: %w", err)
		}
		if hdr.Name == metadataFile {
			if err := json.NewDecoder(tr).Decode(&metadata); err != nil {
				return metadata, fmt.Errorf("invalid metadata: %w", err)
			}
			continue
		}
		hash := sha256.New()
		if _, err := io.Copy(hash, tr); err != nil {
			return metadata, err
		}
		sums[hdr.Name] = fmt.Sprintf("sha256:%x", hash.Sum(nil))
	}

	if metadata.Filename == "" {
		return metadata, fmt.Errorf("archive %s has no metadata", filename)
	}
	if got := sums[metadata.Filename]; got != metadata.Checksum {
		return metadata, fmt.Errorf("checksum mismatch for %s: got %q, want %q", metadata.Filename, got, metadata.Checksum)
	}
	return metadata, nil
}

// archiveTime reads the creation time from an archive name. The random
// suffix after the timestamp is optional.
func archiveTime(name string) (time.Time, error) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
	if len(stamp) > len(archiveTimestamp) && stamp[len(archiveTimestamp)] == '-' {
		stamp = stamp[:len(archiveTimestamp)]
	}
	return time.Parse(archiveTimestamp, stamp)
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, names []string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, name := range names {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFileToArchive(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
