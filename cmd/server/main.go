package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SlpAus/eastend-save-backend/api"
	"github.com/SlpAus/eastend-save-backend/internal/platform/backup"
	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/SlpAus/eastend-save-backend/internal/platform/database"
	"github.com/SlpAus/eastend-save-backend/internal/platform/health"
	"github.com/SlpAus/eastend-save-backend/internal/platform/logging"
	"github.com/SlpAus/eastend-save-backend/internal/platform/shutdown"
	"github.com/SlpAus/eastend-save-backend/internal/platform/startup"
	"github.com/SlpAus/eastend-save-backend/internal/save/remote"
	"github.com/SlpAus/eastend-save-backend/internal/session"
	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"github.com/SlpAus/eastend-save-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// 1. 会话令牌密钥：未配置时随机生成
	if cfg.Auth.Secret != "" {
		err = token.SetSecretKey([]byte(cfg.Auth.Secret))
	} else {
		logger.Warn("未配置会话令牌密钥，使用随机密钥，重启后旧令牌将失效")
		err = token.GenerateSecretKey()
	}
	if err != nil {
		logger.Fatal("初始化会话令牌密钥失败", zap.Error(err))
	}

	// 2. 数据库与Redis
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logger.Fatal("数据库初始化失败", zap.Error(err))
	}

	var rdb redis.Cmdable
	if strings.EqualFold(cfg.Saves.LocalBackend, startup.BackendRedis) {
		client, err := database.InitRedis(context.Background(), cfg.Database.Redis)
		if err != nil {
			logger.Fatal("Redis初始化失败", zap.Error(err))
		}
		rdb = client
	}

	// 3. 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(db, cfg.Saves, logger); err != nil {
		logger.Fatal("应用初始化失败，无法启动", zap.Error(err))
	}
	substrate, err := startup.BuildSubstrate(cfg.Saves, rdb, db)
	if err != nil {
		logger.Fatal("本地存档后端初始化失败", zap.Error(err))
	}

	// 4. 组装设备会话
	remoteStore := remote.New(db, remote.WithLogger(logger.Named("remote")))
	registry := session.NewRegistry(
		session.NewFactory(substrate, remoteStore, cfg.Saves, logger.Named("save")),
		cfg.Session.IdleTTL,
		logger.Named("session"),
	)
	handler := session.NewHandler(registry, logger.Named("http"))

	// 5. 后台服务
	mgr := lifecycle.NewManager(logger.Named("lifecycle"))
	janitorHandle, err := mgr.NewServiceHandle("session-janitor")
	if err != nil {
		logger.Fatal("注册后台服务失败", zap.Error(err))
	}
	go registry.StartJanitor(janitorHandle, cfg.Session.SweepInterval)

	var snapshotter *backup.Snapshotter
	if rdb != nil {
		logger.Info("正在执行启动后健康检查...")
		health.PerformCheck(context.Background(), rdb, logger)

		healthHandle, err := mgr.NewServiceHandle("redis-health-check")
		if err != nil {
			logger.Fatal("注册后台服务失败", zap.Error(err))
		}
		go health.StartRedisHealthCheck(healthHandle, rdb, logger)

		snapshotter = backup.NewSnapshotter(rdb, db, cfg.Saves.KeyPrefix, logger.Named("backup"))
		backupHandle, err := mgr.NewServiceHandle("local-save-backup")
		if err != nil {
			logger.Fatal("注册后台服务失败", zap.Error(err))
		}
		go snapshotter.StartBackupScheduler(backupHandle)
	}

	// 6. HTTP服务
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, handler, health.StatusHandler(db, rdb), logger)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		logger.Info("服务器已准备就绪，开始监听", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	stopper := shutdown.NewCoordinator(mgr, logger)
	if snapshotter != nil {
		stopper.FinalSnapshot = func(ctx context.Context) error {
			_, err := snapshotter.CreateSnapshot(ctx)
			return err
		}
	}
	stopper.ListenForSignalsAndShutdown(server)
}
