package clientdata

import (
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupJob(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.NotNil(t, job)
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO security_metadata (isin, data, expires_at) VALUES (?, ?, ?)", "IE_EXPIRED", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO security_metadata (isin, data, expires_at) VALUES (?, ?, ?)", "IE_FRESH", `{}`, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO current_prices (symbol, data, expires_at) VALUES (?, ?, ?)", "AAPL", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO current_prices (symbol, data, expires_at) VALUES (?, ?, ?)", "MSFT", `{}`, freshAt)
	require.NoError(t, err)

	job.Run()

	// Only the fresh entries survive
	var count int
	db.QueryRow("SELECT COUNT(*) FROM security_metadata").Scan(&count)
	assert.Equal(t, 1, count)
	db.QueryRow("SELECT COUNT(*) FROM current_prices").Scan(&count)
	assert.Equal(t, 1, count)
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	// Run on empty tables - should not panic
	job.Run()
}

func TestCleanupJobRunAllFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	freshAt := time.Now().Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO security_metadata (isin, data, expires_at) VALUES (?, ?, ?)", "IE001", `{}`, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO security_metadata (isin, data, expires_at) VALUES (?, ?, ?)", "IE002", `{}`, freshAt)
	require.NoError(t, err)

	job.Run()

	var count int
	db.QueryRow("SELECT COUNT(*) FROM security_metadata").Scan(&count)
	assert.Equal(t, 2, count)
}
