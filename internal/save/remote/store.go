// Package remote 实现按用户划分的云端存档存储，每个 (用户, 槽位) 对应 game_saves 表中的一行。
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 普通写入时更新的列：created_at 保留首次写入的值
var setColumns = []string{
	"save_name", "version", "character_data", "progress_data", "inventory_data",
	"is_public", "share_code", "updated_at",
}

// 原样复制时更新的列：连同创建时间一起覆盖
var replaceColumns = append(append([]string(nil), setColumns...), "created_at")

// Store 是云端存档存储。用户身份从上下文中取得，见 save.WithIdentity。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// Option 配置云端存储
type Option func(*Store)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New 创建云端存储
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ save.Store = (*Store)(nil)

// Migrate 负责自动迁移 game_saves 表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Row{}); err != nil {
		return fmt.Errorf("无法迁移game_saves表: %w", err)
	}
	return nil
}

func (s *Store) identity(ctx context.Context, op string) (string, error) {
	userID, ok := save.IdentityFromContext(ctx)
	if !ok {
		s.logger.Warn("未登录，无法访问云端存档", zap.String("op", op))
		return "", save.ErrUnauthenticated
	}
	return userID, nil
}

// GetAll 取得当前用户的所有云端存档
func (s *Store) GetAll(ctx context.Context) (map[save.SlotNumber]save.Record, error) {
	userID, err := s.identity(ctx, "getAll")
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("slot_number").Find(&rows).Error; err != nil {
		s.logger.Error("取得云端存档失败", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("取得云端存档失败: %w", err)
	}

	saves := make(map[save.SlotNumber]save.Record, len(rows))
	for _, row := range rows {
		slot := save.SlotNumber(row.SlotNumber)
		if !slot.Valid() {
			continue
		}
		saves[slot] = row.toRecord()
	}
	return saves, nil
}

// Get 取得特定槽位的云端存档。没有对应行时返回 (nil, nil)，其它失败返回错误。
func (s *Store) Get(ctx context.Context, slot save.SlotNumber) (*save.Record, error) {
	if !slot.Valid() {
		return nil, save.ErrInvalidSlot
	}
	userID, err := s.identity(ctx, "get")
	if err != nil {
		return nil, err
	}

	var row Row
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND slot_number = ?", userID, int(slot)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 无数据
		}
		s.logger.Error("取得云端存档失败", zap.String("userID", userID), zap.Int("slot", int(slot)), zap.Error(err))
		return nil, fmt.Errorf("取得云端存档失败: %w", err)
	}

	rec := row.toRecord()
	return &rec, nil
}

// Set 以 (user_id, slot_number) 为冲突目标 upsert 存档：同一槽位的第二次写入会覆盖而不是新增。
// 没有登录身份时直接失败，不做任何写入。
func (s *Store) Set(ctx context.Context, slot save.SlotNumber, rec save.Record) error {
	now := s.now().UTC()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Version++
	return s.upsert(ctx, slot, rec, setColumns)
}

// Replace 原样写入完整存档，保留其时间戳与版本号
func (s *Store) Replace(ctx context.Context, slot save.SlotNumber, rec save.Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now().UTC()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	return s.upsert(ctx, slot, rec, replaceColumns)
}

func (s *Store) upsert(ctx context.Context, slot save.SlotNumber, rec save.Record, columns []string) error {
	if !slot.Valid() {
		return save.ErrInvalidSlot
	}
	userID, err := s.identity(ctx, "set")
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("无法生成存档ID: %w", err)
	}
	row := fromRecord(userID, slot, rec)
	row.ID = id.String()

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slot_number"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&row).Error
	if err != nil {
		s.logger.Error("保存到云端失败", zap.String("userID", userID), zap.Int("slot", int(slot)), zap.Error(err))
		return fmt.Errorf("保存到云端失败: %w", err)
	}
	return nil
}

// Delete 删除当前用户特定槽位的云端存档
func (s *Store) Delete(ctx context.Context, slot save.SlotNumber) error {
	if !slot.Valid() {
		return save.ErrInvalidSlot
	}
	userID, err := s.identity(ctx, "delete")
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND slot_number = ?", userID, int(slot)).
		Delete(&Row{}).Error
	if err != nil {
		s.logger.Error("删除云端存档失败", zap.String("userID", userID), zap.Int("slot", int(slot)), zap.Error(err))
		return fmt.Errorf("删除云端存档失败: %w", err)
	}
	return nil
}

// ListSummaries 取得云端槽位信息
func (s *Store) ListSummaries(ctx context.Context) ([]save.Summary, error) {
	saves, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return save.BuildSummaries(saves), nil
}
