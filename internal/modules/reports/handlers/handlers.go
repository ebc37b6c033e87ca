// Package handlers provides HTTP handlers for report generation and retrieval.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/catalog"
	"github.com/ararat/reports/internal/modules/reports"
	"github.com/ararat/reports/internal/spreadsheet"
	"github.com/ararat/reports/internal/storage"
)

// catalogListLimit bounds the catalog entries merged into a listing.
const catalogListLimit = 500

// Generator runs the report pipeline.
type Generator interface {
	Generate(ctx context.Context, req reports.Request) (*reports.Result, error)
}

// Catalog lists recorded reports.
type Catalog interface {
	List(ctx context.Context, limit int) ([]catalog.Entry, error)
	Get(ctx context.Context, filename string) (catalog.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Prober checks the record store.
type Prober interface {
	Ping(ctx context.Context) error
	Operations(ctx context.Context, w domain.Window, shopID string) []domain.Operation
	Shops(ctx context.Context) []domain.Shop
}

// Handler handles report HTTP requests
type Handler struct {
	generator  Generator
	publisher  storage.Publisher
	prober     Prober
	catalog    Catalog
	reportsDir string
	log        zerolog.Logger
}

// NewHandler creates a new reports handler
func NewHandler(
	generator Generator,
	publisher storage.Publisher,
	prober Prober,
	reportsDir string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		generator:  generator,
		publisher:  publisher,
		prober:     prober,
		reportsDir: reportsDir,
		log:        log.With().Str("handler", "reports").Logger(),
	}
}

// SetCatalog sets the report catalog used to enrich and back up listings
func (h *Handler) SetCatalog(c Catalog) {
	h.catalog = c
}

// GenerateRequest is the body of POST /api/generate-report
type GenerateRequest struct {
	Type      string `json:"type"`
	ShopID    string `json:"shopId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Period    string `json:"period"`
}

// GenerateResponse is returned after a successful generation
type GenerateResponse struct {
	Success     bool   `json:"success"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
	LocalPath   string `json:"localPath"`
	Message     string `json:"message"`
	RunID       string `json:"runId"`
	ReportType  string `json:"reportType"`
	ShopID      string `json:"shopId"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
	Remote      bool   `json:"remote"`
	UploadError string `json:"uploadError,omitempty"`
}

// ReportInfo describes one listed report
type ReportInfo struct {
	Filename    string `json:"filename"`
	Size        string `json:"size"`
	SizeBytes   int64  `json:"sizeBytes"`
	CreatedAt   string `json:"createdAt"`
	DownloadURL string `json:"downloadUrl"`
	ReportType  string `json:"reportType,omitempty"`
	ShopID      string `json:"shopId,omitempty"`
	Storage     string `json:"storage"`
	// Summary is the headline figures recorded when the report was generated.
	Summary *catalog.Snapshot `json:"summary,omitempty"`

	created time.Time
}

// ReportDetail is the catalog record of one report.
type ReportDetail struct {
	ReportInfo
	RunID     string   `json:"runId"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Remote    bool     `json:"remote"`
	Local     bool     `json:"local"`
	Sheets    []string `json:"sheets,omitempty"`
}

// HandleGenerate handles POST /api/generate-report
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid report request", err)
		return
	}

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		if reports.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, "invalid report request", err)
			return
		}
		h.log.Error().Err(err).Str("type", body.Type).Str("shop", body.ShopID).Msg("Report generation failed")
		h.writeError(w, http.StatusInternalServerError, "report generation failed", err)
		return
	}

	resp := GenerateResponse{
		Success:     true,
		Filename:    result.Filename,
		DownloadURL: result.DownloadURL,
		LocalPath:   result.LocalPath,
		Message:     fmt.Sprintf("%s report generated successfully", result.Type),
		RunID:       result.RunID,
		ReportType:  string(result.Type),
		ShopID:      result.ShopID,
		StartDate:   formatDay(result.Window.Start),
		EndDate:     formatDay(result.Window.End),
		SizeBytes:   result.SizeBytes,
		Remote:      result.Remote,
	}
	if result.UploadErr != nil {
		resp.UploadError = result.UploadErr.Error()
		resp.Message += ", upload failed so the file is served by this server"
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleDownload handles GET /api/download-report/{filename}
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !storage.IsReportName(name) {
		h.writeError(w, http.StatusNotFound, "report not found", storage.ErrNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", storage.ContentType)

	path := filepath.Join(h.reportsDir, name)
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		info, err := f.Stat()
		if err == nil {
			http.ServeContent(w, r, name, info.ModTime(), f)
			return
		}
	}

	rc, err := h.publisher.Open(r.Context(), name)
	if err != nil {
		w.Header().Del("Content-Disposition")
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "report not found", err)
			return
		}
		h.log.Error().Err(err).Str("filename", name).Msg("Failed to open report")
		h.writeError(w, http.StatusInternalServerError, "failed to open report", err)
		return
	}
	defer rc.Close()

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Str("filename", name).Msg("Report download interrupted")
	}
}

// HandleList handles GET /api/list-reports
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entries []catalog.Entry
	if h.catalog != nil {
		var err error
		if entries, err = h.catalog.List(ctx, catalogListLimit); err != nil {
			h.log.Warn().Err(err).Msg("Failed to read report catalog")
			entries = nil
		}
	}

	objects, err := h.publisher.List(ctx)
	if err != nil {
		if h.catalog == nil {
			h.log.Error().Err(err).Msg("Failed to list reports")
			h.writeError(w, http.StatusInternalServerError, "failed to list reports", err)
			return
		}
		h.log.Warn().Err(err).Msg("Listing failed, serving the catalog")
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"reports":  fromCatalog(entries, nil),
			"degraded": true,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"reports": h.merge(objects, entries),
	})
}

// HandleTestConnection handles GET /api/test-connection
func (h *Handler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.prober.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Record store unreachable")
		h.writeError(w, http.StatusInternalServerError, "record store connection failed", err)
		return
	}

	data := map[string]interface{}{
		"operations": len(h.prober.Operations(ctx, domain.Window{}, domain.ShopAll)),
		"shops":      len(h.prober.Shops(ctx)),
	}
	if h.catalog != nil {
		if n, err := h.catalog.Count(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Failed to count catalog entries")
		} else {
			data["reports"] = n
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Record store connection succeeded",
		"data":    data,
	})
}

// HandleGet handles GET /api/reports/{filename}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if h.catalog == nil || !storage.IsReportName(name) {
		h.writeError(w, http.StatusNotFound, "report not found", catalog.ErrNotFound)
		return
	}

	e, err := h.catalog.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "report not found", err)
			return
		}
		h.log.Error().Err(err).Str("filename", name).Msg("Failed to read report catalog")
		h.writeError(w, http.StatusInternalServerError, "failed to read report catalog", err)
		return
	}

	info := newReportInfo(e.Filename, e.SizeBytes, e.CreatedAt, e.DownloadURL, e.Storage)
	info.ReportType = e.ReportType
	info.ShopID = e.ShopID
	info.Summary = e.Summary
	detail := ReportDetail{
		ReportInfo: info,
		RunID:      e.ID,
		StartDate:  formatDay(e.StartDate),
		EndDate:    formatDay(e.EndDate),
		Remote:     e.Remote,
	}

	path := filepath.Join(h.reportsDir, name)
	if _, err := os.Stat(path); err == nil {
		detail.Local = true
		if detail.Sheets, err = spreadsheet.ReadSheetNames(path); err != nil {
			h.log.Warn().Err(err).Str("filename", name).Msg("Failed to read report sheets")
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  detail,
	})
}

// merge lists published objects, enriched from the catalog. Catalog entries
// kept only on local disk after a failed upload are listed too.
func (h *Handler) merge(objects []storage.Object, entries []catalog.Entry) []ReportInfo {
	byName := make(map[string]catalog.Entry, len(entries))
	for _, e := range entries {
		byName[e.Filename] = e
	}

	out := make([]ReportInfo, 0, len(objects)+len(entries))
	seen := make(map[string]bool, len(objects))
	for _, o := range objects {
		seen[o.Name] = true
		info := newReportInfo(o.Name, o.Size, o.CreatedAt, o.URL, h.publisher.Kind())
		if e, ok := byName[o.Name]; ok {
			info.ReportType = e.ReportType
			info.ShopID = e.ShopID
			info.Summary = e.Summary
		}
		out = append(out, info)
	}

	out = append(out, fromCatalog(entries, func(e catalog.Entry) bool {
		if seen[e.Filename] || e.Remote {
			return false
		}
		_, err := os.Stat(filepath.Join(h.reportsDir, e.Filename))
		return err == nil
	})...)

	sortReports(out)
	return out
}

func fromCatalog(entries []catalog.Entry, keep func(catalog.Entry) bool) []ReportInfo {
	out := make([]ReportInfo, 0, len(entries))
	for _, e := range entries {
		if keep != nil && !keep(e) {
			continue
		}
		info := newReportInfo(e.Filename, e.SizeBytes, e.CreatedAt, e.DownloadURL, e.Storage)
		info.ReportType = e.ReportType
		info.ShopID = e.ShopID
		info.Summary = e.Summary
		out = append(out, info)
	}
	sortReports(out)
	return out
}

func newReportInfo(name string, size int64, created time.Time, url, kind string) ReportInfo {
	return ReportInfo{
		Filename:    name,
		Size:        fmt.Sprintf("%.1f MB", float64(size)/1024/1024),
		SizeBytes:   size,
		CreatedAt:   created.UTC().Format(time.RFC3339),
		DownloadURL: url,
		Storage:     kind,
		created:     created,
	}
}

func sortReports(list []ReportInfo) {
	slices.SortStableFunc(list, func(a, b ReportInfo) int {
		if c := b.created.Compare(a.created); c != 0 {
			return c
		}
		return strings.Compare(a.Filename, b.Filename)
	})
}

func (b GenerateRequest) toRequest() (reports.Request, error) {
	t, err := reports.ParseReportType(b.Type)
	if err != nil {
		return reports.Request{}, err
	}
	start, err := reports.ParseDate(b.StartDate)
	if err != nil {
		return reports.Request{}, err
	}
	end, err := reports.ParseDate(b.EndDate)
	if err != nil {
		return reports.Request{}, err
	}
	req := reports.Request{
		Type:      t,
		ShopID:    strings.TrimSpace(b.ShopID),
		StartDate: start,
		EndDate:   end,
	}
	if b.Period != "" {
		g, err := analytics.ParseGranularity(b.Period)
		if err != nil {
			return reports.Request{}, err
		}
		req.Period = g
	}
	return req, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
		"message": message,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
