package save_test

import (
	"context"
	"strings"
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/stretchr/testify/assert"
)

func TestRecordValidate(t *testing.T) {
	valid := record("Aria", 3, baseTime)
	valid.SlotNumber = 1
	valid.InventoryData.Items = []save.InventoryItem{
		{ID: "sword", Name: "铁剑", Quantity: 1, Type: save.ItemWeapon},
		{ID: "note", Name: "便条", Quantity: 1},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *save.Record)
	}{
		{"slot out of range", func(r *save.Record) { r.SlotNumber = 4 }},
		{"missing slot", func(r *save.Record) { r.SlotNumber = 0 }},
		{"negative level", func(r *save.Record) { r.CharacterData.Level = -1 }},
		{"negative play time", func(r *save.Record) { r.ProgressData.PlayTime = -5 }},
		{"save name too long", func(r *save.Record) { r.SaveName = strings.Repeat("x", 101) }},
		{"unknown item type", func(r *save.Record) {
			r.InventoryData.Items = []save.InventoryItem{{ID: "x", Type: "spell"}}
		}},
		{"negative quantity", func(r *save.Record) {
			r.InventoryData.Items = []save.InventoryItem{{ID: "x", Quantity: -1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.InventoryData.Items = append([]save.InventoryItem(nil), valid.InventoryData.Items...)
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), save.ErrInvalidRecord)
		})
	}
}

func TestIdentityFromContext(t *testing.T) {
	ctx := context.Background()
	_, ok := save.IdentityFromContext(ctx)
	assert.False(t, ok)

	_, ok = save.IdentityFromContext(save.WithIdentity(ctx, ""))
	assert.False(t, ok)

	userID, ok := save.IdentityFromContext(save.WithIdentity(ctx, "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}
