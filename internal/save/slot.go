package save

import (
	"fmt"
	"strconv"
)

// SlotCount 是每个用户固定拥有的存档槽位数量
const SlotCount = 3

// SlotNumber 标识一个存档槽位，只有 1、2、3 是合法值
type SlotNumber int

// AllSlots 按固定顺序列出所有合法槽位
var AllSlots = [SlotCount]SlotNumber{1, 2, 3}

// Valid 判断槽位号是否在 1..3 之内
func (s SlotNumber) Valid() bool {
	return s >= 1 && s <= SlotCount
}

// ParseSlot 将路径参数等字符串解析为合法的槽位号
func ParseSlot(raw string) (SlotNumber, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	slot := SlotNumber(n)
	if !slot.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, n)
	}
	return slot, nil
}
