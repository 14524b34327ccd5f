package user

import (
	"net/http"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CookieName   = "device-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	DeviceIDKey  = "deviceID"
	AuthStateKey = "authState"
)

// EnsureDeviceCookieMiddleware 确保浏览器中有一个格式正确的device-id cookie。
// 如果没有或格式不正确，它会生成一个新的设备ID并设置cookie，同时放入Gin上下文供本次请求使用。
func EnsureDeviceCookieMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := c.Cookie(CookieName)

		if err != nil || !IsValidUUID(deviceID) {
			if err != http.ErrNoCookie {
				logger.Warn("检测到无效的设备Cookie", zap.String("value", deviceID), zap.Error(err))
			}
			newID, err := CreateDeviceID()
			if err != nil {
				logger.Error("创建设备ID时发生错误", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法创建设备标识"})
				return
			}
			c.SetCookie(CookieName, newID, CookieMaxAge, "/", "", false, true)
			deviceID = newID
		}

		c.Set(DeviceIDKey, deviceID)
		c.Next()
	}
}

// LoadIdentityMiddleware 解析 Authorization 头，把认证状态放入Gin上下文。
func LoadIdentityMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := ResolveAuth(c.GetHeader("Authorization"))
		if err != nil {
			logger.Info("会话令牌无效，按访客处理", zap.Error(err))
		}
		c.Set(AuthStateKey, state)
		c.Next()
	}
}

// DeviceID 取出当前请求的设备ID
func DeviceID(c *gin.Context) string {
	return c.GetString(DeviceIDKey)
}

// Auth 取出当前请求的认证状态
func Auth(c *gin.Context) save.AuthState {
	if v, ok := c.Get(AuthStateKey); ok {
		if state, ok := v.(save.AuthState); ok {
			return state
		}
	}
	return save.AuthState{}
}
