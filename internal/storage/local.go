package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LocalPublisher keeps reports in the local reports directory.
type LocalPublisher struct {
	dir string
	log zerolog.Logger
}

// NewLocalPublisher creates a publisher rooted at dir.
func NewLocalPublisher(dir string, log zerolog.Logger) *LocalPublisher {
	return &LocalPublisher{
		dir: dir,
		log: log.With().Str("component", "local_publisher").Logger(),
	}
}

// Publish checks the report is present in the reports directory and returns its local URL.
func (p *LocalPublisher) Publish(ctx context.Context, localPath, name string) (string, error) {
	if filepath.Dir(localPath) != filepath.Clean(p.dir) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrUploadFailed, localPath, p.dir)
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return LocalURL(name), nil
}

// List returns the reports in the directory, newest first.
func (p *LocalPublisher) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Object{}, nil
		}
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsReportName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			p.log.Warn().Err(err).Str("filename", e.Name()).Msg("Failed to stat report")
			continue
		}
		objects = append(objects, Object{
			Name:      e.Name(),
			Key:       e.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
			URL:       LocalURL(e.Name()),
		})
	}

	sortNewestFirst(objects)
	return objects, nil
}

// Open opens a report from the directory.
func (p *LocalPublisher) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !IsReportName(name) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(p.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	return f, nil
}

// Kind implements Publisher.
func (p *LocalPublisher) Kind() string { return "local" }
