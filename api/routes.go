package api

import (
	"github.com/SlpAus/eastend-save-backend/internal/session"
	"github.com/SlpAus/eastend-save-backend/internal/user"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, handler *session.Handler, health gin.HandlerFunc, logger *zap.Logger) {
	api := router.Group("/api")
	{
		api.GET("/health", health)

		// 存档相关的路由组 /api/saves
		saveRoutes := api.Group("/saves",
			user.EnsureDeviceCookieMiddleware(logger),
			user.LoadIdentityMiddleware(logger))
		{
			saveRoutes.GET("", handler.GetState)
			saveRoutes.POST("/refresh", handler.Refresh)
			saveRoutes.POST("/migrate", handler.MigrateToCloud)
			saveRoutes.GET("/:slot", handler.GetSave)
			saveRoutes.PUT("/:slot", handler.PutSave)
			saveRoutes.DELETE("/:slot", handler.DeleteSave)
			saveRoutes.POST("/:slot/resolve", handler.ResolveConflict)
		}

		// 本设备的本地存档维护 /api/local-saves
		localRoutes := api.Group("/local-saves",
			user.EnsureDeviceCookieMiddleware(logger),
			user.LoadIdentityMiddleware(logger))
		{
			localRoutes.GET("/export", handler.ExportLocal)
			localRoutes.POST("/import", handler.ImportLocal)
			localRoutes.DELETE("", handler.ClearLocal)
		}
	}
}
