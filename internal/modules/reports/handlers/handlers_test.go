package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ararat/reports/internal/database"
	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/catalog"
	"github.com/ararat/reports/internal/modules/extraction"
	"github.com/ararat/reports/internal/modules/reports"
	"github.com/ararat/reports/internal/storage"
	"github.com/ararat/reports/internal/store"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)

type fixture struct {
	router  *chi.Mux
	handler *Handler
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	dir := t.TempDir()

	db, err := database.New(database.Config{Path: filepath.Join(dir, "data", "catalog.db"), Name: "catalog"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	repo := catalog.NewRepository(db.Conn(), log)

	s := store.NewMemoryStore()
	s.Insert(domain.CollectionOperations,
		store.Document{ID: "op1", Fields: map[string]any{"shopId": "s1", "date": "2024-02-05T10:00:00.000Z", "total_general": 100}},
		store.Document{ID: "op2", Fields: map[string]any{"shopId": "s2", "date": "2024-02-20T10:00:00.000Z", "total_general": 200}},
	)
	s.Insert(domain.CollectionShops,
		store.Document{ID: "s1", Fields: map[string]any{"name": "Central"}},
		store.Document{ID: "s2", Fields: map[string]any{"name": "Market"}},
	)

	extractor := extraction.NewExtractor(s, time.Second, log)
	publisher := storage.NewLocalPublisher(dir, log)
	svc := reports.NewService(extractor, analytics.NewEngine(analytics.DefaultMargin), publisher, repo, dir, log)
	svc.SetClock(func() time.Time { return testNow })

	h := NewHandler(svc, publisher, extractor, dir, log)
	h.SetCatalog(repo)

	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return &fixture{router: router, handler: h, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

type fakeGenerator struct {
	result *reports.Result
	err    error
}

func (g fakeGenerator) Generate(context.Context, reports.Request) (*reports.Result, error) {
	return g.result, g.err
}

type fakeProber struct {
	err error
}

func (p fakeProber) Ping(context.Context) error { return p.err }
func (p fakeProber) Operations(context.Context, domain.Window, string) []domain.Operation {
	return nil
}
func (p fakeProber) Shops(context.Context) []domain.Shop { return nil }

type brokenPublisher struct {
	storage.Publisher
}

func (brokenPublisher) List(context.Context) ([]storage.Object, error) {
	return nil, errors.New("access denied")
}

type fakeCatalog struct {
	entries []catalog.Entry
}

func (c fakeCatalog) List(context.Context, int) ([]catalog.Entry, error) { return c.entries, nil }
func (c fakeCatalog) Get(_ context.Context, filename string) (catalog.Entry, error) {
	for _, e := range c.entries {
		if e.Filename == filename {
			return e, nil
		}
	}
	return catalog.Entry{}, catalog.ErrNotFound
}
func (c fakeCatalog) Count(context.Context) (int, error) { return len(c.entries), nil }

func TestGenerateDownloadList(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/generate-report", map[string]string{
		"type":      "monthly",
		"shopId":    "all",
		"startDate": "2024-02-01",
		"endDate":   "2024-02-29",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "report_monthly_2024-02.xlsx", resp["filename"])
	assert.Equal(t, "/api/download-report/report_monthly_2024-02.xlsx", resp["downloadUrl"])
	assert.Equal(t, "2024-02-01", resp["startDate"])
	assert.Equal(t, "monthly report generated successfully", resp["message"])
	assert.NotContains(t, resp, "uploadError")

	dl := f.do(t, http.MethodGet, resp["downloadUrl"].(string), nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, storage.ContentType, dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "report_monthly_2024-02.xlsx")
	assert.True(t, bytes.HasPrefix(dl.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	alias := f.do(t, http.MethodGet, "/report/report_monthly_2024-02.xlsx", nil)
	assert.Equal(t, http.StatusOK, alias.Code)

	list := f.do(t, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, list.Code)
	body := decode(t, list)
	items := body["reports"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "report_monthly_2024-02.xlsx", item["filename"])
	assert.Equal(t, "0.0 MB", item["size"])
	assert.Equal(t, "monthly", item["reportType"])
	assert.Equal(t, "local", item["storage"])

	summary := item["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["operations"])
	assert.Equal(t, "300", summary["salesTotal"])
}

func TestHandleGet_ReturnsCatalogRecord(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/generate-report", map[string]string{
		"type":      "custom",
		"shopId":    "s2",
		"startDate": "2024-02-01",
		"endDate":   "2024-02-29",
	})
	require.Equal(t, http.StatusOK, w.Code)
	generated := decode(t, w)
	name := generated["filename"].(string)

	w = f.do(t, http.MethodGet, "/api/reports/"+name, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)["report"].(map[string]interface{})
	assert.Equal(t, name, report["filename"])
	assert.Equal(t, generated["runId"], report["runId"])
	assert.Equal(t, "custom", report["reportType"])
	assert.Equal(t, "s2", report["shopId"])
	assert.Equal(t, "2024-02-01", report["startDate"])
	assert.Equal(t, "2024-02-29", report["endDate"])
	assert.Equal(t, true, report["local"])
	assert.Contains(t, report["sheets"], "Summary")

	summary := report["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["operations"])
	assert.Equal(t, "200", summary["salesTotal"])
	assert.Equal(t, "2024-02-20", summary["firstDate"])

	require.NoError(t, os.Remove(filepath.Join(f.dir, name)))
	w = f.do(t, http.MethodGet, "/api/reports/"+name, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report = decode(t, w)["report"].(map[string]interface{})
	assert.Equal(t, false, report["local"])
	assert.NotContains(t, report, "sheets")

	for _, target := range []string{"/api/reports/report_daily_20200101_000000.xlsx", "/api/reports/notes.txt"} {
		w = f.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, false, decode(t, w)["success"])
	}
}

func TestHandleGet_NoCatalog(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(fakeGenerator{}, storage.NewLocalPublisher(t.TempDir(), log), fakeProber{}, t.TempDir(), log)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/report_daily_20240315_143005.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGenerate_Alias(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/report", map[string]string{"type": "daily"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "report_daily_20240315_143005.xlsx", decode(t, w)["filename"])
}

func TestHandleGenerate_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown type", map[string]string{"type": "weekly"}},
		{"malformed date", map[string]string{"type": "custom", "startDate": "15/03/2024"}},
		{"inverted range", map[string]string{"type": "custom", "startDate": "2024-03-10", "endDate": "2024-03-01"}},
		{"unknown period", map[string]string{"type": "custom", "period": "fortnight"}},
		{"not json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/generate-report", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode(t, w)
			assert.Equal(t, false, resp["success"])
			assert.NotEmpty(t, resp["error"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestHandleGenerate_EmptyBodyIsCustom(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-report", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "custom", resp["reportType"])
	assert.Equal(t, "all", resp["shopId"])
}

func TestHandleGenerate_RenderFailure(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(fakeGenerator{err: reports.ErrRender}, storage.NewLocalPublisher(t.TempDir(), log), fakeProber{}, t.TempDir(), log)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-report", bytes.NewBufferString(`{"type":"daily"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestHandleGenerate_UploadFallback(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	result := &reports.Result{
		Type:        reports.TypeDaily,
		ShopID:      "all",
		Filename:    "report_daily_20240315_143005.xlsx",
		DownloadURL: storage.LocalURL("report_daily_20240315_143005.xlsx"),
		UploadErr:   storage.ErrUploadFailed,
	}
	h := NewHandler(fakeGenerator{result: result}, storage.NewLocalPublisher(t.TempDir(), log), fakeProber{}, t.TempDir(), log)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-report", bytes.NewBufferString(`{"type":"daily"}`))
	w := httptest.NewRecorder()
	h.HandleGenerate(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "/api/download-report/report_daily_20240315_143005.xlsx", resp["downloadUrl"])
	assert.Equal(t, storage.ErrUploadFailed.Error(), resp["uploadError"])
}

func TestHandleDownload_NotFound(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{
		"/api/download-report/report_daily_19990101_000000.xlsx",
		"/api/download-report/secrets.txt",
		"/api/download-report/..%2Fcatalog.db",
	} {
		w := f.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	}
}

func TestHandleList_FallsBackToCatalog(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	dir := t.TempDir()
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	h := NewHandler(fakeGenerator{}, brokenPublisher{storage.NewLocalPublisher(dir, log)}, fakeProber{}, dir, log)
	h.SetCatalog(fakeCatalog{entries: []catalog.Entry{
		{Filename: "report_a.xlsx", SizeBytes: 3 * 1024 * 1024 / 2, CreatedAt: older, DownloadURL: "https://bucket/a", Storage: "s3", Remote: true, Summary: &catalog.Snapshot{Operations: 4, SalesTotal: "12.5"}},
		{Filename: "report_b.xlsx", SizeBytes: 1024, CreatedAt: newer, DownloadURL: "https://bucket/b", Storage: "s3", Remote: true},
	}})

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/list-reports", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["degraded"])
	items := resp["reports"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "report_b.xlsx", items[0].(map[string]interface{})["filename"])
	assert.Equal(t, "1.5 MB", items[1].(map[string]interface{})["size"])
	assert.NotContains(t, items[0], "summary")
	assert.Equal(t, "12.5", items[1].(map[string]interface{})["summary"].(map[string]interface{})["salesTotal"])
}

func TestHandleList_NoCatalogFails(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	dir := t.TempDir()
	h := NewHandler(fakeGenerator{}, brokenPublisher{storage.NewLocalPublisher(dir, log)}, fakeProber{}, dir, log)

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/list-reports", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestHandleTestConnection(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/test-connection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["operations"])
	assert.Equal(t, float64(2), data["shops"])
	assert.Equal(t, float64(0), data["reports"])

	f.do(t, http.MethodPost, "/api/generate-report", map[string]string{"type": "daily"})
	w = f.do(t, http.MethodGet, "/api/test-connection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["reports"])

	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(fakeGenerator{}, storage.NewLocalPublisher(t.TempDir(), log), fakeProber{err: errors.New("unreachable")}, t.TempDir(), log)
	w = httptest.NewRecorder()
	h.HandleTestConnection(w, httptest.NewRequest(http.MethodGet, "/test-connection", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unreachable", decode(t, w)["error"])
}

func TestRegisterRoutes(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(fakeGenerator{}, storage.NewLocalPublisher(t.TempDir(), log), fakeProber{}, t.TempDir(), log)

	assert.NotPanics(t, func() {
		h.RegisterRoutes(chi.NewRouter())
	})
}
