package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例，供项目其他部分使用
var RDB *redis.Client

const connectTimeout = 5 * time.Second

// InitRedis 初始化与Redis数据库的连接
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	// 使用从配置文件加载的参数
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	RDB = client
	return RDB, nil
}

// CloseRedis 关闭全局Redis客户端
func CloseRedis() error {
	if RDB == nil {
		return nil
	}
	return RDB.Close()
}
