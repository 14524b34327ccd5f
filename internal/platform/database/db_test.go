package database

import (
	"errors"
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsRetryableError(errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")))
	assert.False(t, IsRetryableError(errors.New("UNIQUE constraint failed")))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitAndCloseDB(t *testing.T) {
	db, err := InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	assert.Same(t, DB, db)
	assert.NoError(t, CloseDB())
	DB = nil
}

func TestRedisStatusTransitions(t *testing.T) {
	t.Cleanup(func() { UpdateRedisStatus(true) })

	assert.True(t, IsRedisHealthy())
	assert.False(t, UpdateRedisStatus(true))
	assert.True(t, UpdateRedisStatus(false))
	assert.False(t, IsRedisHealthy())
	assert.True(t, UpdateRedisStatus(true))
}
