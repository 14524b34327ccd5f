package save

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Record 是存档的持久化单元，本地和云端存储的是同一逻辑结构。
// 角色、进度、物品三块数据归游戏逻辑所有，存储层只负责原样传递。
type Record struct {
	// ID 是云端行的主键，本地存档可能为空
	ID         string     `json:"id,omitempty"`
	SlotNumber SlotNumber `json:"slotNumber" validate:"min=1,max=3"`
	SaveName   string     `json:"saveName" validate:"max=100"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// Version 在每次写入时加一，仅用于展示和调试
	Version int `json:"version" validate:"min=0"`

	CharacterData CharacterData `json:"characterData"`
	ProgressData  ProgressData  `json:"progressData"`
	InventoryData InventoryData `json:"inventoryData"`

	IsPublic  bool   `json:"isPublic,omitempty"`
	ShareCode string `json:"shareCode,omitempty" validate:"max=32"`
}

// CharacterData 角色资料
type CharacterData struct {
	Name       string         `json:"name" validate:"max=64"`
	Race       string         `json:"race,omitempty"`
	Class      string         `json:"class,omitempty"`
	Level      int            `json:"level" validate:"min=0"`
	Experience int64          `json:"experience" validate:"min=0"`
	Stats      CharacterStats `json:"stats"`
	Appearance *Appearance    `json:"appearance,omitempty"`
}

// CharacterStats 角色基础属性
type CharacterStats struct {
	Strength     int `json:"strength"`
	Agility      int `json:"agility"`
	Intelligence int `json:"intelligence"`
	Vitality     int `json:"vitality"`
}

// Appearance 是可选的外观设定，旧存档中可能不存在
type Appearance struct {
	HairColor string `json:"hairColor,omitempty"`
	EyeColor  string `json:"eyeColor,omitempty"`
	SkinTone  string `json:"skinTone,omitempty"`
}

// ProgressData 游戏进度
type ProgressData struct {
	CurrentChapter  int               `json:"currentChapter" validate:"min=0"`
	CurrentLocation string            `json:"currentLocation,omitempty"`
	CompletedQuests []string          `json:"completedQuests,omitempty"`
	UnlockedAreas   []string          `json:"unlockedAreas,omitempty"`
	Decisions       map[string]string `json:"decisions,omitempty"`
	Flags           map[string]bool   `json:"flags,omitempty"`
	// PlayTime 以秒为单位
	PlayTime int64 `json:"playTime" validate:"min=0"`
}

// InventoryData 物品栏
type InventoryData struct {
	Items    []InventoryItem `json:"items,omitempty" validate:"dive"`
	Gold     int64           `json:"gold" validate:"min=0"`
	MaxSlots int             `json:"maxSlots" validate:"min=0"`
}

// ItemType 物品类别
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
	ItemQuest      ItemType = "quest"
	ItemMisc       ItemType = "misc"
)

// InventoryItem 物品栏中的一项
type InventoryItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity" validate:"min=0"`
	Type     ItemType `json:"type" validate:"omitempty,oneof=weapon armor consumable quest misc"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 在边界处校验存档结构，不解释游戏数据的含义
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
