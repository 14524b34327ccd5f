package user

import (
	"fmt"
	"strings"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/SlpAus/eastend-save-backend/pkg/token"
	"github.com/google/uuid"
)

// CreateDeviceID 生成一个新的设备UUID。
// 设备ID只用于划分本地存档，不代表任何登录身份。
func CreateDeviceID() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// IsValidUUID 检查字符串是否为格式正确的UUID
func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ResolveAuth 根据 Authorization 头解析认证状态。
// 没有令牌或令牌无效时视为访客，而不是拒绝请求。
func ResolveAuth(authorization string) (save.AuthState, error) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return save.AuthState{}, nil
	}

	payload, err := token.ValidateSessionToken(strings.TrimSpace(raw))
	if err != nil {
		return save.AuthState{}, err
	}
	return save.AuthState{UserID: payload.UserID, Authenticated: true}, nil
}
