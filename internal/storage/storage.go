// Package storage publishes rendered reports and lists the published ones.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
)

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DownloadRoute is the local retrieval route of the HTTP API.
const DownloadRoute = "/api/download-report/"

var (
	// ErrUploadFailed is returned when the remote store rejects or cannot receive a report.
	ErrUploadFailed = errors.New("report upload failed")
	// ErrNotFound is returned when a report does not exist.
	ErrNotFound = errors.New("report not found")
)

// Object describes one published report.
type Object struct {
	Name      string
	Key       string
	Size      int64
	CreatedAt time.Time
	URL       string
}

// Publisher stores reports and retrieves them by file name.
type Publisher interface {
	// Publish uploads the file at localPath under name and returns its retrieval URL.
	Publish(ctx context.Context, localPath, name string) (string, error)
	// List returns published reports, newest first.
	List(ctx context.Context) ([]Object, error)
	// Open streams a published report. It returns ErrNotFound for unknown names.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Kind names the backend ("s3" or "local").
	Kind() string
}

// New returns an S3 publisher when a bucket is configured and a local one otherwise.
func New(ctx context.Context, cfg config.StorageConfig, reportsDir string, log zerolog.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		log.Info().Str("dir", reportsDir).Msg("No bucket configured, reports are served locally")
		return NewLocalPublisher(reportsDir, log), nil
	}
	return NewS3Publisher(ctx, cfg, log)
}

// LocalURL is the retrieval reference of a report served from the local reports directory.
func LocalURL(name string) string {
	return DownloadRoute + name
}

// IsReportName reports whether name is a plain report file name.
func IsReportName(name string) bool {
	return strings.HasPrefix(name, "report_") &&
		strings.HasSuffix(name, ".xlsx") &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.Contains(name, "..") &&
		path.Base(name) == name
}

func sortNewestFirst(objects []Object) {
	slices.SortStableFunc(objects, func(a, b Object) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
