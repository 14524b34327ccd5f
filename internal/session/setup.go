package session

import (
	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"go.uber.org/zap"
)

// NewFactory 返回按配置组装会话的工厂：每台设备一个本地存储块，云端存储全体共享。
func NewFactory(substrate local.Substrate, remote save.Store, cfg config.SavesConfig, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(deviceID string) *Session {
		deviceLogger := logger.With(zap.String("deviceID", deviceID))
		localStore := local.New(substrate, local.Key(cfg.KeyPrefix, deviceID), local.WithLogger(deviceLogger))

		opts := []save.Option{save.WithLogger(deviceLogger)}
		if cfg.MinLoading >= 0 {
			opts = append(opts, save.WithMinLoading(cfg.MinLoading))
		}
		if cfg.ConflictTolerance > 0 {
			opts = append(opts, save.WithConflictTolerance(cfg.ConflictTolerance))
		}

		return &Session{
			Coordinator: save.NewCoordinator(localStore, remote, opts...),
			Local:       localStore,
		}
	}
}
