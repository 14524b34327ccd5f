package save

import "errors"

var (
	// ErrInvalidSlot 表示槽位号不在 1..3 之内，任何存储都不会为其创建记录
	ErrInvalidSlot = errors.New("无效的存档槽位")

	// ErrUnauthenticated 表示需要登录身份的云端操作缺少身份
	ErrUnauthenticated = errors.New("未登录，无法访问云端存档")

	// ErrInvalidRecord 表示存档数据未通过结构校验
	ErrInvalidRecord = errors.New("存档数据无效")
)
