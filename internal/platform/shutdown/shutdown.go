package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/platform/database"
	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 10 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它来协调停机。
type Coordinator struct {
	Manager *lifecycle.Manager
	logger  *zap.Logger

	// FinalSnapshot 在后台服务退出后、关闭连接前执行一次，可以为 nil
	FinalSnapshot func(ctx context.Context) error
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(mgr *lifecycle.Manager, logger *zap.Logger) *Coordinator {
	return &Coordinator{Manager: mgr, logger: logger}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 阻塞直到接收到停机信号
	sig := <-sigChan
	c.logger.Info("收到关闭信号，开始优雅停机...", zap.String("signal", sig.String()))
	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务与数据连接。
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("Gin服务器关闭错误", zap.Error(err))
	} else {
		c.logger.Info("Gin服务器已关闭。")
	}

	// 广播停机信号，等待所有后台服务完成
	c.Manager.Shutdown()
	if remaining := c.Manager.WaitWithTimeout(gracefulTimeout); len(remaining) > 0 {
		c.logger.Warn("部分后台服务未能在超时前退出", zap.Strings("services", remaining))
	} else {
		c.logger.Info("所有后台服务已优雅关闭。")
	}

	// --- 最终步骤 ---
	if c.FinalSnapshot != nil {
		c.logger.Info("正在执行最终快照...")
		snapshotCtx, snapshotCancel := context.WithTimeout(context.Background(), httpTimeout)
		if err := c.FinalSnapshot(snapshotCtx); err != nil {
			c.logger.Error("最终快照失败", zap.Error(err))
		} else {
			c.logger.Info("最终快照成功。")
		}
		snapshotCancel()
	}

	if err := database.CloseRedis(); err != nil {
		c.logger.Error("关闭Redis连接失败", zap.Error(err))
	}
	if err := database.CloseDB(); err != nil {
		c.logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	c.logger.Info("优雅停机完成。")
}
