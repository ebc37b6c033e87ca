package reports

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/catalog"
	"github.com/ararat/reports/internal/modules/extraction"
	"github.com/ararat/reports/internal/spreadsheet"
	"github.com/ararat/reports/internal/storage"
	"github.com/ararat/reports/internal/utils"
)

// Extractor fetches the datasets of one report.
type Extractor interface {
	Extract(ctx context.Context, w domain.Window, shopID string) extraction.Bundle
}

// Catalog records generated reports.
type Catalog interface {
	Record(ctx context.Context, e catalog.Entry) (catalog.Entry, error)
	Get(ctx context.Context, filename string) (catalog.Entry, error)
}

// maxNameAttempts bounds the numeric suffixes tried for a taken file name.
const maxNameAttempts = 100

// Request is a validated report request.
type Request struct {
	Type      ReportType
	ShopID    string
	StartDate *time.Time
	EndDate   *time.Time
	// Period overrides the sales performance bucket chosen for the report type.
	Period analytics.Granularity
	// AsOf replaces the current time when resolving relative windows.
	AsOf time.Time
}

// Validate normalizes defaults and rejects unknown types, periods and inverted ranges.
func (r *Request) Validate() error {
	t, err := ParseReportType(string(r.Type))
	if err != nil {
		return err
	}
	r.Type = t

	if r.ShopID == "" {
		r.ShopID = domain.ShopAll
	}
	if r.Period != "" {
		if _, err := analytics.ParseGranularity(string(r.Period)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReportType, err)
		}
	}
	if r.Type != TypeDaily && r.StartDate != nil && r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	}
	return nil
}

// Result describes a generated report.
type Result struct {
	RunID       string
	Type        ReportType
	ShopID      string
	Filename    string
	LocalPath   string
	DownloadURL string
	Remote      bool
	Storage     string
	SizeBytes   int64
	Window      domain.Window
	Summary     analytics.Summary
	GeneratedAt time.Time
	// UploadErr is set when publishing failed and DownloadURL is the local fallback.
	UploadErr error
}

// Service runs the report pipeline. Each call is independent and shares no mutable state.
type Service struct {
	extractor  Extractor
	engine     *analytics.Engine
	publisher  storage.Publisher
	catalog    Catalog
	reportsDir string
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates the report service. catalog may be nil.
func NewService(
	extractor Extractor,
	engine *analytics.Engine,
	publisher storage.Publisher,
	catalog Catalog,
	reportsDir string,
	log zerolog.Logger,
) *Service {
	return &Service{
		extractor:  extractor,
		engine:     engine,
		publisher:  publisher,
		catalog:    catalog,
		reportsDir: reportsDir,
		now:        time.Now,
		log:        log.With().Str("service", "reports").Logger(),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Generate resolves the window, extracts, aggregates, renders and publishes one report.
// Store failures yield an empty report; upload failures fall back to the local
// retrieval URL. Only validation and rendering failures are returned as errors.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := s.now()
	asOf := started
	if !req.AsOf.IsZero() {
		asOf = req.AsOf
	}

	window := ResolveWindow(req.Type, req.StartDate, req.EndDate, asOf)
	if window.Start != nil && window.End != nil && window.Start.After(*window.End) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	}
	views := SelectViews(req.Type, window)
	if req.Period != "" {
		views.Granularity = req.Period
	}

	runID := uuid.NewString()
	log := s.log.With().
		Str("run_id", runID).
		Str("report_type", string(req.Type)).
		Str("shop", req.ShopID).
		Logger()
	log.Info().
		Str("start", formatDay(window.Start)).
		Str("end", formatDay(window.End)).
		Msg("Generating report")

	extracted := utils.StageTimer("extract", log)
	bundle := s.extractor.Extract(ctx, window, req.ShopID)
	if views.Restrict != nil {
		bundle = bundle.Restrict(*views.Restrict)
	}
	extracted()
	log.Info().
		Int("operations", len(bundle.Operations)).
		Int("deposits", len(bundle.Deposits)).
		Int("clients", len(bundle.Clients)).
		Int("movements", len(bundle.Movements)).
		Msg("Data extracted")
	if bundle.Empty() {
		log.Warn().Msg("No records found for the requested window")
	}

	rendered := utils.StageTimer("render", log)
	report := s.BuildReport(bundle, views)

	filename, err := s.claimName(ctx, FileName(req.Type, window, started))
	if err != nil {
		rendered()
		log.Error().Err(err).Str("dir", s.reportsDir).Msg("Failed to reserve report file name")
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	path := filepath.Join(s.reportsDir, filename)
	err = spreadsheet.BuildWorkbook(report).WriteFile(path)
	rendered()
	if err != nil {
		_ = os.Remove(path)
		log.Error().Err(err).Str("path", path).Msg("Failed to render report")
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: rendered file missing: %v", ErrRender, err)
	}

	result := &Result{
		RunID:       runID,
		Type:        req.Type,
		ShopID:      req.ShopID,
		Filename:    filename,
		LocalPath:   path,
		Storage:     s.publisher.Kind(),
		SizeBytes:   info.Size(),
		Window:      window,
		Summary:     report.Summary,
		GeneratedAt: started,
	}

	published := utils.StageTimer("publish", log)
	url, err := s.publisher.Publish(ctx, path, filename)
	published()
	switch {
	case err != nil:
		log.Warn().Err(err).Str("filename", filename).Msg("Upload failed, serving the local copy")
		result.DownloadURL = storage.LocalURL(filename)
		result.UploadErr = err
		result.Storage = "local"
	default:
		result.DownloadURL = url
		result.Remote = s.publisher.Kind() != "local"
	}

	s.record(ctx, result, log)

	log.Info().
		Str("filename", filename).
		Int64("size_bytes", result.SizeBytes).
		Bool("remote", result.Remote).
		Dur("duration", s.now().Sub(started)).
		Msg("Report generated")
	return result, nil
}

// claimName reserves a report file name by creating an empty placeholder in
// the reports directory. A name already on disk or in the catalog gets a
// numeric suffix, so report_daily_20240315_143005.xlsx becomes
// report_daily_20240315_143005_2.xlsx.
func (s *Service) claimName(ctx context.Context, base string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; n <= maxNameAttempts; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		if s.catalogHas(ctx, name) {
			continue
		}
		f, err := os.OpenFile(filepath.Join(s.reportsDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return name, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}

func (s *Service) catalogHas(ctx context.Context, name string) bool {
	if s.catalog == nil {
		return false
	}
	_, err := s.catalog.Get(ctx, name)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		s.log.Warn().Err(err).Str("filename", name).Msg("Catalog lookup failed, checking the disk only")
	}
	return err == nil
}

// BuildReport runs every aggregation the view set needs.
func (s *Service) BuildReport(b extraction.Bundle, views ViewSet) spreadsheet.Report {
	e := s.engine
	report := spreadsheet.Report{
		Margin:     e.Margin,
		Summary:    e.Summary(b.Operations, b.Deposits, b.Clients, b.Movements),
		Daily:      e.DailySales(b.Operations),
		Shops:      e.ShopSales(b.Operations),
		Clients:    e.ClientDeposits(b.Deposits),
		Stock:      e.MovementsByType(b.Movements),
		Operations: b.Operations,
		Deposits:   b.Deposits,
	}
	if views.Analysis {
		report.Analysis = &spreadsheet.Analysis{
			Granularity: views.Granularity,
			Sales:       e.SalesPerformance(b.Operations, views.Granularity),
			Benefits:    e.Benefits(b.Operations, b.Movements),
			Clients:     e.ClientBehavior(b.Clients, b.Deposits),
			Stock:       e.StockMovements(b.Movements),
		}
	}
	return report
}

func (s *Service) record(ctx context.Context, r *Result, log zerolog.Logger) {
	if s.catalog == nil {
		return
	}
	_, err := s.catalog.Record(ctx, catalog.Entry{
		ID:          r.RunID,
		Filename:    r.Filename,
		ReportType:  string(r.Type),
		ShopID:      r.ShopID,
		StartDate:   r.Window.Start,
		EndDate:     r.Window.End,
		SizeBytes:   r.SizeBytes,
		DownloadURL: r.DownloadURL,
		Storage:     r.Storage,
		Remote:      r.Remote,
		CreatedAt:   r.GeneratedAt,
		Summary:     catalog.SnapshotOf(r.Summary),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record report in catalog")
	}
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidReportType) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidRange)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format("2006-01-02")
}
