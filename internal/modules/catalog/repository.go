package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const dateLayout = "2006-01-02"

const selectColumns = `id, filename, report_type, shop_id, start_date, end_date,
	size_bytes, download_url, storage, remote, created_at, summary`

// Repository reads and writes catalog entries.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a catalog repository on a migrated catalog database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "catalog").Logger(),
	}
}

// Record stores an entry. A report regenerated under the same file name replaces the previous entry.
func (r *Repository) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Filename == "" {
		return Entry{}, errors.New("filename is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Second)

	var summary []byte
	if e.Summary != nil {
		var err error
		if summary, err = msgpack.Marshal(e.Summary); err != nil {
			return Entry{}, fmt.Errorf("failed to encode summary: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Filename, e.ReportType, e.ShopID,
		formatDate(e.StartDate), formatDate(e.EndDate),
		e.SizeBytes, e.DownloadURL, e.Storage, e.Remote,
		e.CreatedAt.Unix(), summary,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record report %s: %w", e.Filename, err)
	}

	r.log.Debug().Str("filename", e.Filename).Str("id", e.ID).Msg("Report recorded")
	return e, nil
}

// List returns the most recent entries, newest first. A non-positive limit returns all entries.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM reports ORDER BY created_at DESC, filename ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return entries, nil
}

// Get returns the entry for a file name.
func (r *Repository) Get(ctx context.Context, filename string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM reports WHERE filename = ?`, filename)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Count returns the number of entries.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e          Entry
		start, end sql.NullString
		createdAt  int64
		summary    []byte
	)
	err := s.Scan(
		&e.ID, &e.Filename, &e.ReportType, &e.ShopID, &start, &end,
		&e.SizeBytes, &e.DownloadURL, &e.Storage, &e.Remote, &createdAt, &summary,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan report: %w", err)
	}

	e.StartDate = parseDate(start)
	e.EndDate = parseDate(end)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if len(summary) > 0 {
		var snap Snapshot
		if err := msgpack.Unmarshal(summary, &snap); err != nil {
			return Entry{}, fmt.Errorf("failed to decode summary of %s: %w", e.Filename, err)
		}
		e.Summary = &snap
	}
	return e, nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
