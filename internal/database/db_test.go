package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "nested", "catalog.db"), Name: "catalog"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndMigrates(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, "catalog", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "schema is idempotent")

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count))
	assert.Equal(t, 0, count)

	ctx := context.Background()
	assert.NoError(t, db.HealthCheck(ctx))
	assert.NoError(t, db.WALCheckpoint(ctx))
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Conn().Exec(`CREATE TABLE items (name TEXT)`)
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
		return n
	}

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items VALUES ('b')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(`INSERT INTO items VALUES ('c')`)
		panic("unexpected")
	})
	assert.ErrorContains(t, err, "panic in transaction")
	assert.Equal(t, 1, count())

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec(`INSERT INTO reports (id, filename, report_type, shop_id, download_url, storage, created_at) VALUES ('r1', 'report_a.xlsx', 'daily', 'all', '/u', 'local', 0)`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	snapshot, err := sql.Open("sqlite", dest)
	require.NoError(t, err)
	defer snapshot.Close()

	var count int
	require.NoError(t, snapshot.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count))
	assert.Equal(t, 1, count)

	assert.Error(t, db.BackupTo(context.Background(), dest), "existing destination is rejected")
}
