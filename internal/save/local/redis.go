package local

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisSubstrate 把每台设备的存档块保存为一个 Redis String
// Key: eastend_game_saves:<deviceID>
// Value: 槽位号到存档的 JSON 映射
type RedisSubstrate struct {
	rdb redis.Cmdable
}

// NewRedisSubstrate 基于已连接的 Redis 客户端创建本地存储
func NewRedisSubstrate(rdb redis.Cmdable) *RedisSubstrate {
	return &RedisSubstrate{rdb: rdb}
}

func (r *RedisSubstrate) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // 未找到
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisSubstrate) Write(ctx context.Context, key string, data []byte) error {
	return r.rdb.Set(ctx, key, data, 0).Err()
}

func (r *RedisSubstrate) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}
