package save_test

import (
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotNumberValid(t *testing.T) {
	for _, slot := range save.AllSlots {
		assert.True(t, slot.Valid(), "slot %d", slot)
	}
	for _, slot := range []save.SlotNumber{-1, 0, 4, 99} {
		assert.False(t, slot.Valid(), "slot %d", slot)
	}
}

func TestParseSlot(t *testing.T) {
	slot, err := save.ParseSlot("2")
	require.NoError(t, err)
	assert.Equal(t, save.SlotNumber(2), slot)

	for _, raw := range []string{"", "0", "4", "abc", "1.5", "-1"} {
		_, err := save.ParseSlot(raw)
		assert.ErrorIs(t, err, save.ErrInvalidSlot, "raw %q", raw)
	}
}
