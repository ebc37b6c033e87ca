package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/reports"
)

func testConfig(t *testing.T) *config.Config {
	tmpDir := t.TempDir()
	return &config.Config{
		ReportsDir: tmpDir,
		DataDir:    filepath.Join(tmpDir, "data"),
		Store: config.StoreConfig{
			Driver:  config.StoreMemory,
			Timeout: time.Second,
		},
	}
}

func TestWire(t *testing.T) {
	log := zerolog.Nop()

	container, jobs, err := Wire(context.Background(), testConfig(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(log) })

	assert.NotNil(t, container.CatalogDB)
	assert.NotNil(t, container.RecordStore)
	assert.Equal(t, "local", container.Publisher.Kind())
	assert.NotNil(t, container.CatalogRepo)
	assert.NotNil(t, container.ReportService)
	assert.True(t, container.Engine.Margin.Equal(analytics.DefaultMargin))

	assert.Equal(t, "daily_report", jobs.DailyReport.Name())
	assert.Equal(t, "monthly_report", jobs.MonthlyReport.Name())
	assert.NoError(t, jobs.CheckCatalog.Run())
	assert.NoError(t, jobs.BackupCatalog.Run())

	backups, err := container.Backups.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestWire_GeneratesReport(t *testing.T) {
	log := zerolog.Nop()

	container, _, err := Wire(context.Background(), testConfig(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(log) })

	res, err := container.ReportService.Generate(context.Background(), reports.Request{Type: reports.TypeDaily})
	require.NoError(t, err)
	assert.FileExists(t, res.LocalPath)

	count, err := container.CatalogRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWire_UnknownStoreDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "cassandra"

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
