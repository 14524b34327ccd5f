// Package session 为每台设备持有一个存档协调器，并通过 HTTP 暴露协调器的操作。
package session

import (
	"sync"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

// Session 是一台设备的存档会话。
// 同一设备的请求（例如两个标签页）共享协调器的认证状态，
// 因此处理器在同步认证与执行操作期间持有 mu，使每个请求都按自己携带的身份路由。
type Session struct {
	Coordinator *save.Coordinator
	Local       *local.Store

	mu       sync.Mutex
	lastSeen time.Time
}

// Factory 为设备创建新的会话
type Factory func(deviceID string) *Session

// Registry 按设备ID缓存会话，并回收长期闲置的会话。
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Session

	factory Factory
	idleTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistry 创建会话注册表。idleTTL 不大于0时会话永不过期。
func NewRegistry(factory Factory, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*Session),
		factory: factory,
		idleTTL: idleTTL,
		now:     time.Now,
		logger:  logger,
	}
}

// Acquire 返回设备对应的会话，不存在时创建
func (r *Registry) Acquire(deviceID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[deviceID]
	if !ok {
		s = r.factory(deviceID)
		r.entries[deviceID] = s
		r.logger.Debug("创建设备会话", zap.String("deviceID", deviceID))
	}
	s.lastSeen = r.now()
	return s
}

// Len 返回当前缓存的会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep 移除闲置超过 idleTTL 的会话，返回移除的数量。
// 会话只持有内存中的视图，存档数据本身不受影响。
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, s := range r.entries {
		if s.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// StartJanitor 在后台定期清理闲置会话，直到收到停机信号。
func (r *Registry) StartJanitor(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	r.logger.Info("会话清理器已启动。", zap.Duration("interval", interval))

	for {
		if err := handle.Sleep(interval); err != nil {
			r.logger.Info("会话清理器: 收到停机信号，正在关闭...")
			return
		}
		if removed := r.Sweep(); removed > 0 {
			r.logger.Info("已清理闲置会话", zap.Int("removed", removed), zap.Int("remaining", r.Len()))
		}
	}
}
