package startup

import (
	"fmt"
	"strings"

	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/SlpAus/eastend-save-backend/internal/save/remote"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 本地存档可用的存储后端
const (
	BackendRedis  = "redis"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication(db *gorm.DB, cfg config.SavesConfig, logger *zap.Logger) error {
	logger.Info("开始应用首次初始化...")

	if err := remote.Migrate(db); err != nil {
		return err
	}
	// local_save_blobs 既是 sql 后端的存储，也是 redis 后端的备份目标
	switch strings.ToLower(cfg.LocalBackend) {
	case BackendSQL, BackendRedis:
		if err := local.MigrateSQL(db); err != nil {
			return err
		}
	}

	logger.Info("应用初始化完成！")
	return nil
}

// BuildSubstrate 按配置选择本地存档的存储后端
func BuildSubstrate(cfg config.SavesConfig, rdb redis.Cmdable, db *gorm.DB) (local.Substrate, error) {
	switch strings.ToLower(cfg.LocalBackend) {
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("本地存档后端为 redis，但Redis未初始化")
		}
		return local.NewRedisSubstrate(rdb), nil
	case BackendSQL:
		return local.NewSQLSubstrate(db), nil
	case BackendMemory, "":
		return local.NewMemorySubstrate(), nil
	default:
		return nil, fmt.Errorf("未知的本地存档后端: %s", cfg.LocalBackend)
	}
}
