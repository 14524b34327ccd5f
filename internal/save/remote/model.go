package remote

import (
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
)

// Row 定义了云端存档在数据库中的持久化模型，每个 (用户, 槽位) 一行。
// 角色、进度、物品三块数据以 JSON 存储，数据库不解释其内容。
type Row struct {
	// ID 是行的主键，写入时使用 UUID v7 生成
	ID string `gorm:"primarykey;type:varchar(36)"`

	// UserID 与 SlotNumber 共同构成唯一约束，也是 upsert 的冲突目标
	UserID     string `gorm:"not null;type:varchar(64);uniqueIndex:idx_game_saves_user_slot,priority:1"`
	SlotNumber int    `gorm:"not null;uniqueIndex:idx_game_saves_user_slot,priority:2"`

	SaveName string `gorm:"type:varchar(100)"`
	Version  int

	CharacterData save.CharacterData `gorm:"serializer:json;type:text"`
	ProgressData  save.ProgressData  `gorm:"serializer:json;type:text"`
	InventoryData save.InventoryData `gorm:"serializer:json;type:text"`

	IsPublic  bool
	ShareCode string `gorm:"type:varchar(32)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (Row) TableName() string {
	return "game_saves"
}

// toRecord 将数据库行转换为存档
func (r Row) toRecord() save.Record {
	return save.Record{
		ID:            r.ID,
		SlotNumber:    save.SlotNumber(r.SlotNumber),
		SaveName:      r.SaveName,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
		CharacterData: r.CharacterData,
		ProgressData:  r.ProgressData,
		InventoryData: r.InventoryData,
		IsPublic:      r.IsPublic,
		ShareCode:     r.ShareCode,
	}
}

// fromRecord 将存档转换为某个用户的数据库行
func fromRecord(userID string, slot save.SlotNumber, rec save.Record) Row {
	return Row{
		UserID:        userID,
		SlotNumber:    int(slot),
		SaveName:      rec.SaveName,
		Version:       rec.Version,
		CharacterData: rec.CharacterData,
		ProgressData:  rec.ProgressData,
		InventoryData: rec.InventoryData,
		IsPublic:      rec.IsPublic,
		ShareCode:     rec.ShareCode,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
