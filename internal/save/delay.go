package save

import (
	"context"
	"time"
)

// DefaultMinLoading 是载入时最短的可见载入时间，避免骨架屏闪烁
const DefaultMinLoading = 500 * time.Millisecond

// RemainingDelay 计算真实 I/O 结束后还需要等待的时间：max(0, minimum - elapsed)
func RemainingDelay(minimum, elapsed time.Duration) time.Duration {
	if remaining := minimum - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// sleepContext 休眠指定时长，上下文取消时提前返回
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
