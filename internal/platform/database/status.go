package database

import (
	"sync"
)

// statusManager 负责线程安全地管理和提供存储的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
}

// 全局的状态管理器实例
var globalStatus = &statusManager{
	isRedisHealthy: true, // 默认启动时是健康的
}

// IsRedisHealthy 返回当前Redis的健康状态。
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.isRedisHealthy
}

// UpdateRedisStatus 线程安全地更新健康状态，返回状态是否发生了变化。
func UpdateRedisStatus(isHealthy bool) (changed bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()

	if globalStatus.isRedisHealthy == isHealthy {
		return false
	}
	globalStatus.isRedisHealthy = isHealthy
	return true
}
