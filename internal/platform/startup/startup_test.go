package startup

import (
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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
	return db
}

func TestInitializeApplicationMigratesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitializeApplication(db, config.SavesConfig{LocalBackend: BackendSQL}, zap.NewNop()))

	assert.True(t, db.Migrator().HasTable("game_saves"))
	assert.True(t, db.Migrator().HasTable("local_save_blobs"))
}

func TestInitializeApplicationMigratesBackupTableForRedis(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitializeApplication(db, config.SavesConfig{LocalBackend: BackendRedis}, zap.NewNop()))

	assert.True(t, db.Migrator().HasTable("local_save_blobs"))
}

func TestInitializeApplicationSkipsLocalTableForMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitializeApplication(db, config.SavesConfig{LocalBackend: BackendMemory}, zap.NewNop()))

	assert.True(t, db.Migrator().HasTable("game_saves"))
	assert.False(t, db.Migrator().HasTable("local_save_blobs"))
}

func TestBuildSubstrate(t *testing.T) {
	db := openTestDB(t)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	sub, err := BuildSubstrate(config.SavesConfig{LocalBackend: "Redis"}, rdb, db)
	require.NoError(t, err)
	assert.IsType(t, &local.RedisSubstrate{}, sub)

	sub, err = BuildSubstrate(config.SavesConfig{LocalBackend: BackendSQL}, nil, db)
	require.NoError(t, err)
	assert.IsType(t, &local.SQLSubstrate{}, sub)

	sub, err = BuildSubstrate(config.SavesConfig{}, nil, db)
	require.NoError(t, err)
	assert.IsType(t, &local.MemorySubstrate{}, sub)

	_, err = BuildSubstrate(config.SavesConfig{LocalBackend: BackendRedis}, nil, db)
	assert.Error(t, err)
	_, err = BuildSubstrate(config.SavesConfig{LocalBackend: "etcd"}, nil, db)
	assert.Error(t, err)
}
