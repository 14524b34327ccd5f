package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob 是 SQL 键值表中的一行，每台设备一行
type Blob struct {
	ID        uint   `gorm:"primarykey"`
	Key       string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (Blob) TableName() string {
	return "local_save_blobs"
}

// SQLSubstrate 在没有 Redis 的部署中，用数据库键值表充当本地存储
type SQLSubstrate struct {
	db *gorm.DB
}

// NewSQLSubstrate 创建基于 GORM 的本地存储
func NewSQLSubstrate(db *gorm.DB) *SQLSubstrate {
	return &SQLSubstrate{db: db}
}

// MigrateSQL 负责自动迁移键值表结构
func MigrateSQL(db *gorm.DB) error {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return fmt.Errorf("无法迁移local_save_blobs表: %w", err)
	}
	return nil
}

func (s *SQLSubstrate) Read(ctx context.Context, key string) ([]byte, error) {
	var blob Blob
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(blob.Value), nil
}

// Write 使用 OnConflict 对 key 做原子的 upsert
func (s *SQLSubstrate) Write(ctx context.Context, key string, data []byte) error {
	blob := Blob{
		Key:   key,
		Value: string(data),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
}

func (s *SQLSubstrate) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&Blob{}).Error
}
