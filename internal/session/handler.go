package session

import (
	"net/http"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/SlpAus/eastend-save-backend/internal/user"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResolveRequestBody 定义了解决冲突时请求体的JSON结构
type ResolveRequestBody struct {
	Choice save.Choice `json:"choice" binding:"required,oneof=local remote"`
}

// Handler 把设备会话的协调器操作暴露为HTTP接口
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// session 取出当前设备的会话并加锁，然后同步本次请求携带的认证状态。
// 调用方在响应写出后必须调用返回的 release。
// withFloor 为 true 时认证变化引起的载入遵守最短载入时间，只用于读取槽位列表的请求。
func (h *Handler) session(c *gin.Context, withFloor bool) (*Session, func()) {
	s := h.registry.Acquire(user.DeviceID(c))
	s.mu.Lock()
	if withFloor {
		s.Coordinator.SetAuth(c.Request.Context(), user.Auth(c))
	} else {
		s.Coordinator.SyncAuth(c.Request.Context(), user.Auth(c))
	}
	return s, s.mu.Unlock
}

func respond(c *gin.Context, ok bool, coord *save.Coordinator) {
	c.JSON(http.StatusOK, gin.H{"ok": ok, "state": coord.View()})
}

func parseSlot(c *gin.Context) (save.SlotNumber, bool) {
	slot, err := save.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的存档槽位: " + c.Param("slot")})
		return 0, false
	}
	return slot, true
}

// GetState 返回槽位列表、载入状态、错误信息与冲突列表
func (h *Handler) GetState(c *gin.Context) {
	s, release := h.session(c, true)
	defer release()
	respond(c, true, s.Coordinator)
}

// Refresh 重新载入槽位信息
func (h *Handler) Refresh(c *gin.Context) {
	s, release := h.session(c, false)
	defer release()
	s.Coordinator.Refresh(c.Request.Context())
	respond(c, s.Coordinator.Error() == "", s.Coordinator)
}

// GetSave 返回某个槽位的完整存档
func (h *Handler) GetSave(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	s, release := h.session(c, false)
	defer release()

	rec := s.Coordinator.GetSave(c.Request.Context(), slot)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "存档不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"save": rec})
}

// PutSave 保存某个槽位
func (h *Handler) PutSave(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	var rec save.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	s, release := h.session(c, false)
	defer release()

	succeeded := s.Coordinator.Save(c.Request.Context(), slot, rec)
	respond(c, succeeded, s.Coordinator)
}

// DeleteSave 删除某个槽位
func (h *Handler) DeleteSave(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	s, release := h.session(c, false)
	defer release()

	succeeded := s.Coordinator.DeleteSave(c.Request.Context(), slot)
	respond(c, succeeded, s.Coordinator)
}

// ResolveConflict 按用户选择解决某个槽位的冲突
func (h *Handler) ResolveConflict(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	var body ResolveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	s, release := h.session(c, false)
	defer release()

	succeeded := s.Coordinator.ResolveConflict(c.Request.Context(), slot, body.Choice)
	respond(c, succeeded, s.Coordinator)
}

// MigrateToCloud 把本地独有的存档迁移到云端，需要登录
func (h *Handler) MigrateToCloud(c *gin.Context) {
	if !user.Auth(c).Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "需要登录后才能迁移存档"})
		return
	}
	s, release := h.session(c, false)
	defer release()

	succeeded := s.Coordinator.MigrateToCloud(c.Request.Context())
	respond(c, succeeded, s.Coordinator)
}

// ExportLocal 下载本设备的本地存档块
func (h *Handler) ExportLocal(c *gin.Context) {
	s := h.registry.Acquire(user.DeviceID(c))
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.Local.Export(c.Request.Context())
	if err != nil {
		h.logger.Error("导出本地存档失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出本地存档失败"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="eastend_saves.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportLocal 用上传的存档块替换本设备的全部本地存档
func (h *Handler) ImportLocal(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取请求体"})
		return
	}
	s, release := h.session(c, false)
	defer release()

	if err := s.Local.Import(c.Request.Context(), data); err != nil {
		h.logger.Warn("导入本地存档失败", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "导入本地存档失败: " + err.Error()})
		return
	}
	s.Coordinator.Refresh(c.Request.Context())
	respond(c, true, s.Coordinator)
}

// ClearLocal 清空本设备的全部本地存档
func (h *Handler) ClearLocal(c *gin.Context) {
	s, release := h.session(c, false)
	defer release()

	if err := s.Local.Clear(c.Request.Context()); err != nil {
		h.logger.Error("清空本地存档失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空本地存档失败"})
		return
	}
	s.Coordinator.Refresh(c.Request.Context())
	respond(c, true, s.Coordinator)
}
