package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/di"
	"github.com/ararat/reports/internal/scheduler"
)

func newTestServer(t *testing.T) (*Server, *di.JobInstances) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	tmpDir := t.TempDir()
	cfg := &config.Config{
		Port:       5000,
		ReportsDir: tmpDir,
		DataDir:    filepath.Join(tmpDir, "data"),
		Store:      config.StoreConfig{Driver: config.StoreMemory, Timeout: time.Second},
	}

	container, jobs, err := di.Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(log) })

	return New(Config{Log: log, Container: container, Port: cfg.Port}), jobs
}

func serve(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := serve(s, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Catalog)
		assert.Equal(t, "local", resp.Storage)
		assert.NotEmpty(t, resp.Timestamp)
		assert.Positive(t, resp.Goroutines)
	}
}

func TestReportRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodPost, "/report", []byte(`{"type":"daily","shopId":"all"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var generated map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&generated))
	assert.Equal(t, true, generated["success"])

	w = serve(s, http.MethodGet, generated["downloadUrl"].(string), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, http.MethodGet, "/api/list-reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Len(t, listed["reports"], 1)

	w = serve(s, http.MethodGet, "/test-connection", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, http.MethodGet, "/report/report_missing.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobTriggers(t *testing.T) {
	s, jobs := newTestServer(t)

	w := serve(s, http.MethodPost, "/api/jobs/daily-report", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.SetJobs(scheduler.New(zerolog.Nop()), jobs)

	for _, path := range []string{"/api/jobs/daily-report", "/api/jobs/monthly-report", "/api/jobs/check-catalog", "/api/jobs/backup-catalog"} {
		w = serve(s, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-report", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
