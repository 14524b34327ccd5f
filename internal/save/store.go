package save

import "context"

// Store 是本地与云端两种存档来源的共同能力。
// 不存在的槽位返回 (nil, nil)，读写失败返回 error，由协调器决定如何呈现。
type Store interface {
	GetAll(ctx context.Context) (map[SlotNumber]Record, error)
	Get(ctx context.Context, slot SlotNumber) (*Record, error)

	// Set 写入存档，并刷新 UpdatedAt、将 Version 加一
	Set(ctx context.Context, slot SlotNumber, rec Record) error

	// Replace 原样写入一份完整存档，保留其时间戳与版本号。
	// 只用于在两个来源之间复制记录（解决冲突、迁移），使两端写入后保持一致。
	Replace(ctx context.Context, slot SlotNumber, rec Record) error

	Delete(ctx context.Context, slot SlotNumber) error
	ListSummaries(ctx context.Context) ([]Summary, error)
}

type identityKey struct{}

// WithIdentity 将已登录用户的身份放入上下文，云端存储据此划分数据
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityFromContext 取出上下文中的用户身份
func IdentityFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(identityKey{}).(string)
	return userID, ok && userID != ""
}

// AuthState 是认证协作方提供的状态快照
type AuthState struct {
	UserID        string `json:"userId,omitempty"`
	Authenticated bool   `json:"authenticated"`
	// Loading 表示认证状态仍在确认中，此时不允许做任何存储路由决定
	Loading bool `json:"loading"`
}
