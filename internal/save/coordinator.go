package save

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 展示层可见的错误信息
const (
	msgLoadFailed       = "载入存档失败"
	msgSaveFailed       = "保存失败"
	msgCloudSaveFailed  = "云端存档失败，已保存到本地"
	msgDeleteFailed     = "删除失败"
	msgResolveFailed    = "解决冲突失败"
	msgMigrateFailed    = "迁移失败"
	msgInvalidSlot      = "无效的存档槽位"
	msgInvalidRecord    = "存档数据无效"
	msgAuthPending      = "登录状态确认中，请稍后重试"
	msgConflictNotFound = "该槽位没有待解决的冲突"
)

// View 是协调器暴露给展示层的状态快照
type View struct {
	Slots          []Summary  `json:"slots"`
	Loading        bool       `json:"loading"`
	Error          string     `json:"error,omitempty"`
	Conflicts      []Conflict `json:"conflicts"`
	IsCloudEnabled bool       `json:"isCloudEnabled"`
}

// Option 配置协调器
type Option func(*Coordinator)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMinLoading 设置首屏载入的最短可见时间
func WithMinLoading(d time.Duration) Option {
	return func(c *Coordinator) { c.minLoading = d }
}

// WithConflictTolerance 设置判定冲突的时间容差
func WithConflictTolerance(d time.Duration) Option {
	return func(c *Coordinator) { c.tolerance = d }
}

// WithClock 替换时钟与休眠实现，主要用于测试
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(c *Coordinator) {
		c.now = now
		c.sleep = sleep
	}
}

// Coordinator 根据认证状态决定访问本地还是云端，检测两端分歧，并向展示层提供统一的槽位视图。
// 它不拥有任何一端的数据，只持有当前会话的槽位信息与冲突列表。
//
// 各操作之间没有互斥：在上一次刷新完成前发起的第二次保存不会被阻塞，
// 两端各自以最后完成的写入为准；由认证变化触发的刷新也不会取消进行中的刷新。
type Coordinator struct {
	local  Store
	remote Store

	logger     *zap.Logger
	minLoading time.Duration
	tolerance  time.Duration
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error

	// mu 只保护下列字段的内存访问，不对业务操作做串行化
	mu        sync.RWMutex
	auth      AuthState
	mounted   bool
	slots     []Summary
	loading   bool
	errMsg    string
	conflicts []Conflict
}

// NewCoordinator 创建协调器。初始认证状态视为确认中，直到第一次 SetAuth。
func NewCoordinator(local, remote Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:      local,
		remote:     remote,
		logger:     zap.NewNop(),
		minLoading: DefaultMinLoading,
		tolerance:  DefaultConflictTolerance,
		now:        time.Now,
		sleep:      sleepContext,
		auth:       AuthState{Loading: true},
		slots:      []Summary{},
		loading:    true,
		conflicts:  []Conflict{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- 状态访问 ---

// View 返回当前状态的一份拷贝
func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// 空列表也序列化为 []，展示层可以直接遍历
	slots := make([]Summary, len(c.slots))
	copy(slots, c.slots)
	conflicts := make([]Conflict, len(c.conflicts))
	copy(conflicts, c.conflicts)
	return View{
		Slots:          slots,
		Loading:        c.loading,
		Error:          c.errMsg,
		Conflicts:      conflicts,
		IsCloudEnabled: c.auth.Authenticated,
	}
}

// Slots 返回当前槽位信息
func (c *Coordinator) Slots() []Summary { return c.View().Slots }

// Loading 表示是否正在载入
func (c *Coordinator) Loading() bool { return c.View().Loading }

// Error 返回最近一次操作的错误信息，没有错误时为空字符串
func (c *Coordinator) Error() string { return c.View().Error }

// Conflicts 返回待解决的存档冲突
func (c *Coordinator) Conflicts() []Conflict { return c.View().Conflicts }

// IsCloudEnabled 表示是否使用云端存档，即当前是否已登录
func (c *Coordinator) IsCloudEnabled() bool { return c.View().IsCloudEnabled }

// Auth 返回协调器记录的认证状态
func (c *Coordinator) Auth() AuthState { return c.authState() }

func (c *Coordinator) authState() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

func (c *Coordinator) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}

func (c *Coordinator) cloudEnabled(auth AuthState) bool {
	return auth.Authenticated && !auth.Loading
}

// SetAuth 记录认证协作方的最新状态。
// 认证仍在确认中时不载入；首次确认或状态发生变化（例如登录完成）时重新载入，
// 这次载入属于首屏绘制，遵守最短载入时间。
func (c *Coordinator) SetAuth(ctx context.Context, state AuthState) {
	c.applyAuth(ctx, state, true)
}

// SyncAuth 与 SetAuth 相同，但重新载入时不等待最短载入时间。
// 用于在保存、删除等直接操作之前同步认证状态。
func (c *Coordinator) SyncAuth(ctx context.Context, state AuthState) {
	c.applyAuth(ctx, state, false)
}

func (c *Coordinator) applyAuth(ctx context.Context, state AuthState, withFloor bool) {
	c.mu.Lock()
	changed := !c.mounted || c.auth != state
	c.auth = state
	c.mu.Unlock()

	if state.Loading || !changed {
		return
	}
	c.load(ctx, withFloor)
}

// Refresh 重新载入槽位信息，并保证至少 minLoading 的可见载入时间。
// 这是首屏绘制路径；保存、删除等操作完成后的重新载入不经过这段等待。
func (c *Coordinator) Refresh(ctx context.Context) {
	c.load(ctx, true)
}

func (c *Coordinator) reload(ctx context.Context) {
	c.load(ctx, false)
}

func (c *Coordinator) load(ctx context.Context, withFloor bool) {
	auth := c.authState()
	// 等待认证状态确认后再开始载入，避免未登录的旧读取与进行中的登录竞争
	if auth.Loading {
		return
	}

	start := c.now()
	c.mu.Lock()
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	// 第一阶段：真实 I/O
	slots, conflicts, err := c.fetch(ctx, auth)

	// 第二阶段：只等待剩余的最短载入时间
	if withFloor {
		if wait := RemainingDelay(c.minLoading, c.now().Sub(start)); wait > 0 {
			_ = c.sleep(ctx, wait)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.mounted = true
	if err != nil {
		// 保留上一次的快照，不让暂时的故障把槽位显示为空
		c.errMsg = msgLoadFailed
		c.logger.Error("载入存档失败", zap.Error(err))
		return
	}
	c.slots = slots
	c.conflicts = conflicts
}

// fetch 读取并对账两端数据。登录时云端为准，本地作为持续维护的备份；未登录时只读本地。
func (c *Coordinator) fetch(ctx context.Context, auth AuthState) ([]Summary, []Conflict, error) {
	if !c.cloudEnabled(auth) {
		localSaves := c.readLocal(ctx)
		return BuildSummaries(localSaves), []Conflict{}, nil
	}

	var localSaves, remoteSaves map[SlotNumber]Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		saves, err := c.remote.GetAll(c.withIdentity(gctx, auth))
		if err != nil {
			return err
		}
		remoteSaves = saves
		return nil
	})
	g.Go(func() error {
		localSaves = c.readLocal(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	conflicts := DetectConflicts(localSaves, remoteSaves, c.tolerance)
	for _, conflict := range conflicts {
		c.logger.Info("检测到存档冲突",
			zap.Int("slot", int(conflict.SlotNumber)),
			zap.Time("localUpdatedAt", conflict.Local.UpdatedAt),
			zap.Time("remoteUpdatedAt", conflict.Remote.UpdatedAt),
			zap.String("recommendation", string(conflict.Recommendation)))
	}
	// 即使存在待解决的冲突，列表也以云端为准
	return BuildSummaries(remoteSaves), conflicts, nil
}

// readLocal 读取本地存档，失败时视为没有数据
func (c *Coordinator) readLocal(ctx context.Context) map[SlotNumber]Record {
	saves, err := c.local.GetAll(ctx)
	if err != nil {
		c.logger.Warn("读取本地存档失败，视为无数据", zap.Error(err))
		return map[SlotNumber]Record{}
	}
	return saves
}

func (c *Coordinator) withIdentity(ctx context.Context, auth AuthState) context.Context {
	return WithIdentity(ctx, auth.UserID)
}

// routable 在认证确认中时拒绝路由
func (c *Coordinator) routable() (AuthState, bool) {
	auth := c.authState()
	if auth.Loading {
		c.setError(msgAuthPending)
		return auth, false
	}
	return auth, true
}

// --- 对展示层暴露的操作 ---

// GetSave 取得某个槽位的完整存档。登录时读云端，否则读本地；任何失败都视为不存在。
func (c *Coordinator) GetSave(ctx context.Context, slot SlotNumber) *Record {
	if !slot.Valid() {
		return nil
	}
	auth, ok := c.routable()
	if !ok {
		return nil
	}

	if c.cloudEnabled(auth) {
		rec, err := c.remote.Get(c.withIdentity(ctx, auth), slot)
		if err != nil {
			c.logger.Error("取得云端存档失败", zap.Int("slot", int(slot)), zap.Error(err))
			return nil
		}
		return rec
	}

	rec, err := c.local.Get(ctx, slot)
	if err != nil {
		c.logger.Error("取得本地存档失败", zap.Int("slot", int(slot)), zap.Error(err))
		return nil
	}
	return rec
}

// Save 先写本地（无论是否登录都作为备份），登录时再写云端。
// 云端失败时整体报告失败，但保留本地写入，不做回滚。
func (c *Coordinator) Save(ctx context.Context, slot SlotNumber, rec Record) bool {
	if !slot.Valid() {
		c.setError(msgInvalidSlot)
		return false
	}
	rec.SlotNumber = slot
	if err := rec.Validate(); err != nil {
		c.logger.Warn("拒绝保存无效存档", zap.Int("slot", int(slot)), zap.Error(err))
		c.setError(msgInvalidRecord)
		return false
	}
	auth, ok := c.routable()
	if !ok {
		return false
	}

	failure := ""
	if err := c.local.Set(ctx, slot, rec); err != nil {
		c.logger.Error("保存本地存档失败", zap.Int("slot", int(slot)), zap.Error(err))
		failure = msgSaveFailed
	}

	if c.cloudEnabled(auth) {
		if err := c.remote.Set(c.withIdentity(ctx, auth), slot, rec); err != nil {
			c.logger.Error("保存到云端失败", zap.Int("slot", int(slot)), zap.Error(err))
			if failure == "" {
				failure = msgCloudSaveFailed
			} else {
				failure = msgSaveFailed
			}
		}
	}

	c.reload(ctx)
	if failure != "" {
		c.setError(failure)
		return false
	}
	return true
}

// DeleteSave 总是删除本地，登录时也删除云端。两端互不阻塞，任何一端失败都会被记录。
func (c *Coordinator) DeleteSave(ctx context.Context, slot SlotNumber) bool {
	if !slot.Valid() {
		c.setError(msgInvalidSlot)
		return false
	}
	auth, ok := c.routable()
	if !ok {
		return false
	}

	succeeded := true
	if err := c.local.Delete(ctx, slot); err != nil {
		c.logger.Error("删除本地存档失败", zap.Int("slot", int(slot)), zap.Error(err))
		succeeded = false
	}
	if c.cloudEnabled(auth) {
		if err := c.remote.Delete(c.withIdentity(ctx, auth), slot); err != nil {
			c.logger.Error("删除云端存档失败", zap.Int("slot", int(slot)), zap.Error(err))
			succeeded = false
		}
	}

	c.reload(ctx)
	if !succeeded {
		c.setError(msgDeleteFailed)
	}
	return succeeded
}

// ResolveConflict 按用户的选择，用胜出一方的完整存档覆盖另一方，然后移除该冲突并重新载入。
// 这是唯一在两端之间复制记录的路径，从不逐字段合并。
func (c *Coordinator) ResolveConflict(ctx context.Context, slot SlotNumber, choice Choice) bool {
	conflict, found := c.findConflict(slot)
	if !found {
		c.setError(msgConflictNotFound)
		return false
	}
	auth, ok := c.routable()
	if !ok {
		return false
	}

	var err error
	switch choice {
	case ChooseLocal:
		err = c.remote.Replace(c.withIdentity(ctx, auth), slot, conflict.Local)
	case ChooseRemote:
		err = c.local.Replace(ctx, slot, conflict.Remote)
	default:
		err = errors.New("未知的冲突解决选项: " + string(choice))
	}
	if err != nil {
		c.logger.Error("解决存档冲突失败",
			zap.Int("slot", int(slot)), zap.String("choice", string(choice)), zap.Error(err))
		c.setError(msgResolveFailed)
		return false
	}

	c.mu.Lock()
	kept := make([]Conflict, 0, len(c.conflicts))
	for _, existing := range c.conflicts {
		if existing.SlotNumber != slot {
			kept = append(kept, existing)
		}
	}
	c.conflicts = kept
	c.mu.Unlock()

	c.logger.Info("存档冲突已解决", zap.Int("slot", int(slot)), zap.String("choice", string(choice)))
	c.reload(ctx)
	return true
}

func (c *Coordinator) findConflict(slot SlotNumber) (Conflict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, conflict := range c.conflicts {
		if conflict.SlotNumber == slot {
			return conflict, true
		}
	}
	return Conflict{}, false
}

// MigrateToCloud 在首次登录时，把云端没有对应存档的本地槽位复制到云端。
// 云端已有的槽位即使本地更新也不会被覆盖；读取云端失败的槽位同样跳过，
// 避免把暂时的故障当作空槽位。
func (c *Coordinator) MigrateToCloud(ctx context.Context) bool {
	auth := c.authState()
	if !c.cloudEnabled(auth) {
		return false
	}
	remoteCtx := c.withIdentity(ctx, auth)

	localSaves := c.readLocal(ctx)
	succeeded := true
	migrated := 0
	for _, slot := range AllSlots {
		rec, ok := localSaves[slot]
		if !ok {
			continue
		}

		existing, err := c.remote.Get(remoteCtx, slot)
		if err != nil {
			c.logger.Error("迁移时读取云端存档失败，跳过该槽位", zap.Int("slot", int(slot)), zap.Error(err))
			succeeded = false
			continue
		}
		if existing != nil {
			continue
		}

		if err := c.remote.Replace(remoteCtx, slot, rec); err != nil {
			c.logger.Error("迁移存档到云端失败", zap.Int("slot", int(slot)), zap.Error(err))
			succeeded = false
			continue
		}
		migrated++
	}
	c.logger.Info("本地存档迁移完成", zap.Int("migrated", migrated), zap.Bool("succeeded", succeeded))

	c.reload(ctx)
	if !succeeded {
		c.setError(msgMigrateFailed)
	}
	return succeeded
}
