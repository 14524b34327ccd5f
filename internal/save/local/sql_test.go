package local_test

import (
	"context"
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, local.MigrateSQL(db))
	return db
}

func TestSQLSubstrate(t *testing.T) {
	ctx := context.Background()
	sub := local.NewSQLSubstrate(openTestDB(t))

	data, err := sub.Read(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, sub.Write(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, sub.Write(ctx, "k", []byte(`{"a":2}`)))
	data, err = sub.Read(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	require.NoError(t, sub.Remove(ctx, "k"))
	data, err = sub.Read(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStoreOnSQLSubstrate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := newStore(local.NewSQLSubstrate(db))

	require.NoError(t, store.Set(ctx, 1, sampleRecord("one")))
	require.NoError(t, store.Set(ctx, 2, sampleRecord("two")))
	require.NoError(t, store.Delete(ctx, 1))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "two", all[2].SaveName)

	var count int64
	require.NoError(t, db.Model(&local.Blob{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "one row per device")
}
