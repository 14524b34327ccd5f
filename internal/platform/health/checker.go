package health

import (
	"context"
	"net/http"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/platform/database"
	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// PerformCheck 执行一次Redis健康检查，并在状态变化时记录日志。
func PerformCheck(ctx context.Context, rdb redis.Cmdable, logger *zap.Logger) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy := rdb.Ping(pingCtx).Err() == nil
	if database.UpdateRedisStatus(healthy) {
		if healthy {
			logger.Info("健康检查: Redis服务状态已更新为 [可用]")
		} else {
			logger.Warn("健康检查警告: Redis服务状态已更新为 [不可用]，本地存档读取将视为无数据")
		}
	}
	return healthy
}

// StartRedisHealthCheck 在后台定期执行健康检查，直到收到停机信号。
func StartRedisHealthCheck(handle *lifecycle.Handle, rdb redis.Cmdable, logger *zap.Logger) {
	defer handle.Close()
	logger.Info("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(checkInterval); err != nil {
			logger.Info("Redis健康检查器: 收到停机信号，正在关闭...")
			return
		}
		PerformCheck(handle.Ctx(), rdb, logger)
	}
}

// StatusResponse 是健康检查接口的响应
type StatusResponse struct {
	Status   string `json:"status"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
}

// StatusHandler 返回报告Redis与数据库状态的处理函数。rdb 为 nil 表示未启用Redis。
func StatusHandler(db *gorm.DB, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := StatusResponse{Status: "ok", Redis: "disabled", Database: "ok"}

		if rdb != nil {
			resp.Redis = "ok"
			if !database.IsRedisHealthy() {
				resp.Redis = "unavailable"
				resp.Status = "degraded"
			}
		}

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			resp.Database = "unavailable"
			resp.Status = "degraded"
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}
