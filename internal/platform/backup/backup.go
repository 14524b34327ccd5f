package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/platform/database"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	backupInterval = 10 * time.Minute // 定时备份频率
	scanBatch      = 200
	maxRetry       = 3
	retryDelay     = 50 * time.Millisecond
)

// ErrNoBackup 表示数据库中没有该设备的备份
var ErrNoBackup = errors.New("没有找到该设备的存档备份")

// Snapshotter 把Redis中各设备的本地存档块镜像到数据库的 local_save_blobs 表，
// Redis数据丢失后可以从这里还原。
type Snapshotter struct {
	rdb    redis.Cmdable
	db     *gorm.DB
	prefix string
	logger *zap.Logger

	mu sync.Mutex // 避免意外竞态
}

// NewSnapshotter 创建快照器。prefix 为存档块的键名前缀。
func NewSnapshotter(rdb redis.Cmdable, db *gorm.DB, prefix string, logger *zap.Logger) *Snapshotter {
	if prefix == "" {
		prefix = local.DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{rdb: rdb, db: db, prefix: prefix, logger: logger}
}

// StartBackupScheduler 在后台定期执行快照，直到收到停机信号。
func (s *Snapshotter) StartBackupScheduler(handle *lifecycle.Handle) {
	defer handle.Close() // 确保在退出时通知管理器
	s.logger.Info("本地存档备份调度器已启动。")

	for {
		// 使用可中断的休眠来代替ticker
		if err := handle.Sleep(backupInterval); err != nil {
			s.logger.Info("备份调度器: 休眠被中断，正在关闭...")
			return
		}

		if !database.IsRedisHealthy() {
			s.logger.Warn("备份调度器: 检测到Redis不可用，跳过本次备份。")
			continue
		}

		count, err := s.CreateSnapshot(handle.Ctx())
		if err != nil {
			// 如果错误是由于停机信号导致的，则静默退出
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				s.logger.Error("备份调度器错误: 执行快照备份失败", zap.Error(err))
			}
			continue
		}
		s.logger.Info("备份调度器: 快照备份成功。", zap.Int("devices", count))
	}
}

// CreateSnapshot 读取所有设备的存档块并写入数据库，返回备份的设备数。
func (s *Snapshotter) CreateSnapshot(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 从Redis收集存档块
	blobs := make([]local.Blob, 0)
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		values, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("无法从Redis读取存档块: %w", err)
		}
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				continue // 扫描后被删除
			}
			blobs = append(blobs, local.Blob{Key: keys[i], Value: str})
		}
		keys = keys[:0]
		return nil
	}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= scanBatch {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("无法扫描Redis中的存档块: %w", err)
	}
	if err := flush(); err != nil {
		return 0, err
	}

	if len(blobs) == 0 {
		return 0, nil
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	// 2. 将快照数据持久化到数据库
	var err error
	for i := 0; i < maxRetry; i++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// 冲突的判断依据是key，每台设备一行
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).CreateInBatches(&blobs, scanBatch).Error
		})
		if err == nil || !database.IsRetryableError(err) {
			break
		}
		time.Sleep(retryDelay)
	}
	if err != nil {
		return 0, fmt.Errorf("持久化存档快照失败: %w", err)
	}
	return len(blobs), nil
}

// RestoreDevice 把数据库中某台设备的备份写回Redis
func (s *Snapshotter) RestoreDevice(ctx context.Context, key string) error {
	var blob local.Blob
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoBackup
		}
		return fmt.Errorf("读取存档备份失败: %w", err)
	}
	if err := s.rdb.Set(ctx, key, blob.Value, 0).Err(); err != nil {
		return fmt.Errorf("写回Redis失败: %w", err)
	}
	s.logger.Info("已从备份还原设备存档", zap.String("key", key))
	return nil
}
