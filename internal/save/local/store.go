// Package local 实现设备本地的存档存储：每台设备的全部存档序列化为一个 JSON 块，
// 保存在键值存储（Redis、SQL 键值表或内存）中的一个固定键下。
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"go.uber.org/zap"
)

// DefaultKeyPrefix 是存档块的键名前缀，完整键名为 <prefix>:<deviceID>
const DefaultKeyPrefix = "eastend_game_saves"

var (
	// ErrNoSubstrate 表示当前运行环境没有可用的本地存储
	ErrNoSubstrate = errors.New("本地存储不可用")

	// ErrInvalidBlob 表示导入的数据无法解析为存档集合
	ErrInvalidBlob = errors.New("存档数据格式错误")
)

// Substrate 是本地存档所依赖的键值存储。
// 键不存在时 Read 返回 (nil, nil)。
type Substrate interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// Key 组合某台设备的存档块键名
func Key(prefix, deviceID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + deviceID
}

// Store 是本地存档存储。所有槽位存放在同一个块中，每次写入都整体覆盖该块。
//
// 写入是不加锁的读-改-写：同一设备的并发写入者可能互相覆盖。
// 这是单用户单终端假设下可接受的约束。
type Store struct {
	substrate Substrate
	key       string
	logger    *zap.Logger
	now       func() time.Time
}

// Option 配置本地存储
type Option func(*Store)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New 创建本地存储。substrate 为 nil 时等同于没有本地存储的运行环境：读取为空，写入失败。
func New(substrate Substrate, key string, opts ...Option) *Store {
	s := &Store{
		substrate: substrate,
		key:       key,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ save.Store = (*Store)(nil)

// blob 是解析后的存档块。
// 无法解析或校验失败的槽位以原始 JSON 保存在 unreadable 中，写回时原样保留，
// 只有针对该槽位的写入或删除才会替换它。
type blob struct {
	saves      map[save.SlotNumber]save.Record
	unreadable map[save.SlotNumber]json.RawMessage
}

func emptyBlob() blob {
	return blob{
		saves:      map[save.SlotNumber]save.Record{},
		unreadable: map[save.SlotNumber]json.RawMessage{},
	}
}

// read 读取整个存档块。底层读取失败返回错误；块整体损坏视为没有数据。
func (s *Store) read(ctx context.Context) (blob, error) {
	if s.substrate == nil {
		return emptyBlob(), ErrNoSubstrate
	}

	data, err := s.substrate.Read(ctx, s.key)
	if err != nil {
		return emptyBlob(), fmt.Errorf("读取本地存档块失败: %w", err)
	}
	if len(data) == 0 {
		return emptyBlob(), nil
	}

	b, err := s.decode(data)
	if err != nil {
		s.logger.Warn("本地存档块已损坏，视为无数据", zap.String("key", s.key), zap.Error(err))
		return emptyBlob(), nil
	}
	return b, nil
}

// decode 逐个槽位解析存档块，丢弃 1..3 以外的槽位。
// 单个槽位解析或校验失败不影响其它槽位。
func (s *Store) decode(data []byte) (blob, error) {
	var raw map[save.SlotNumber]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return blob{}, err
	}

	b := emptyBlob()
	for slot, msg := range raw {
		if !slot.Valid() {
			continue
		}
		var rec save.Record
		err := json.Unmarshal(msg, &rec)
		if err == nil {
			rec.SlotNumber = slot
			err = rec.Validate()
		}
		if err != nil {
			s.logger.Warn("本地存档槽位无法读取，已跳过",
				zap.String("key", s.key), zap.Int("slot", int(slot)), zap.Error(err))
			b.unreadable[slot] = msg
			continue
		}
		b.saves[slot] = rec
	}
	return b, nil
}

// persist 一次性写入整个存档块
func (s *Store) persist(ctx context.Context, b blob) error {
	out := make(map[save.SlotNumber]json.RawMessage, len(b.saves)+len(b.unreadable))
	for slot, msg := range b.unreadable {
		out[slot] = msg
	}
	for slot, rec := range b.saves {
		msg, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("无法序列化本地存档: %w", err)
		}
		out[slot] = msg
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("无法序列化本地存档: %w", err)
	}
	if err := s.substrate.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("写入本地存档块失败: %w", err)
	}
	return nil
}

// GetAll 取得所有存档。任何读取或解析错误都只记录日志并返回空集合，不会传给调用方。
func (s *Store) GetAll(ctx context.Context) (map[save.SlotNumber]save.Record, error) {
	b, err := s.read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSubstrate) {
			s.logger.Error("读取本地存档失败", zap.String("key", s.key), zap.Error(err))
		}
		return map[save.SlotNumber]save.Record{}, nil
	}
	return b.saves, nil
}

// Get 取得特定槽位的存档，不存在时返回 nil
func (s *Store) Get(ctx context.Context, slot save.SlotNumber) (*save.Record, error) {
	if !slot.Valid() {
		return nil, save.ErrInvalidSlot
	}
	saves, _ := s.GetAll(ctx)
	rec, ok := saves[slot]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Set 把存档合并进存档块：刷新 UpdatedAt，Version 加一，然后整体写回
func (s *Store) Set(ctx context.Context, slot save.SlotNumber, rec save.Record) error {
	now := s.now().UTC()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Version++
	return s.write(ctx, slot, rec)
}

// Replace 原样写入一份存档，不修改时间戳与版本号
func (s *Store) Replace(ctx context.Context, slot save.SlotNumber, rec save.Record) error {
	return s.write(ctx, slot, rec)
}

func (s *Store) write(ctx context.Context, slot save.SlotNumber, rec save.Record) error {
	if !slot.Valid() {
		return save.ErrInvalidSlot
	}
	// 读取失败时放弃写入，避免用只含一个槽位的块覆盖其它存档
	b, err := s.read(ctx)
	if err != nil {
		s.logger.Error("保存本地存档失败", zap.String("key", s.key), zap.Int("slot", int(slot)), zap.Error(err))
		return err
	}

	rec.SlotNumber = slot
	b.saves[slot] = rec
	delete(b.unreadable, slot)
	if err := s.persist(ctx, b); err != nil {
		s.logger.Error("保存本地存档失败", zap.String("key", s.key), zap.Int("slot", int(slot)), zap.Error(err))
		return err
	}
	return nil
}

// Delete 从存档块中移除槽位并写回
func (s *Store) Delete(ctx context.Context, slot save.SlotNumber) error {
	if !slot.Valid() {
		return save.ErrInvalidSlot
	}
	b, err := s.read(ctx)
	if err != nil {
		s.logger.Error("删除本地存档失败", zap.String("key", s.key), zap.Int("slot", int(slot)), zap.Error(err))
		return err
	}

	delete(b.saves, slot)
	delete(b.unreadable, slot)
	if err := s.persist(ctx, b); err != nil {
		s.logger.Error("删除本地存档失败", zap.String("key", s.key), zap.Int("slot", int(slot)), zap.Error(err))
		return err
	}
	return nil
}

// ListSummaries 按 1..3 的顺序返回槽位信息
func (s *Store) ListSummaries(ctx context.Context) ([]save.Summary, error) {
	saves, _ := s.GetAll(ctx)
	return save.BuildSummaries(saves), nil
}

// --- 备份与还原 ---

// Export 导出所有存档为带缩进的 JSON（用于备份）
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	saves, _ := s.GetAll(ctx)
	data, err := json.MarshalIndent(saves, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("无法导出本地存档: %w", err)
	}
	return data, nil
}

// Import 用导入的数据整体替换存档块（用于还原）。数据必须能解析且只包含 1..3 槽位。
func (s *Store) Import(ctx context.Context, data []byte) error {
	if s.substrate == nil {
		return ErrNoSubstrate
	}

	var raw map[save.SlotNumber]save.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("导入存档失败", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	for slot, rec := range raw {
		if !slot.Valid() {
			return fmt.Errorf("%w: 槽位 %d", save.ErrInvalidSlot, slot)
		}
		rec.SlotNumber = slot
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("槽位 %d: %w", slot, err)
		}
		raw[slot] = rec
	}

	imported := emptyBlob()
	imported.saves = raw
	if err := s.persist(ctx, imported); err != nil {
		s.logger.Error("导入存档失败", zap.String("key", s.key), zap.Error(err))
		return err
	}
	s.logger.Info("已导入本地存档", zap.String("key", s.key), zap.Int("count", len(raw)))
	return nil
}

// Clear 清除这台设备的所有本地存档
func (s *Store) Clear(ctx context.Context) error {
	if s.substrate == nil {
		return nil
	}
	if err := s.substrate.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("清除本地存档失败: %w", err)
	}
	return nil
}
