package save_test

import (
	"testing"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/google/go-cmp/cmp"
)

func TestBuildSummariesFixedOrder(t *testing.T) {
	rec := record("Aria", 7, baseTime)
	got := save.BuildSummaries(map[save.SlotNumber]save.Record{2: rec})

	updatedAt := baseTime
	want := []save.Summary{
		{SlotNumber: 1, IsEmpty: true},
		{
			SlotNumber:     2,
			SaveName:       "Aria",
			UpdatedAt:      &updatedAt,
			CharacterName:  "Aria",
			CharacterLevel: 7,
			PlayTime:       3600,
		},
		{SlotNumber: 3, IsEmpty: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildSummaries() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSummariesEmpty(t *testing.T) {
	got := save.BuildSummaries(nil)
	if len(got) != save.SlotCount {
		t.Fatalf("expected %d summaries, got %d", save.SlotCount, len(got))
	}
	for i, s := range got {
		if !s.IsEmpty || s.SlotNumber != save.AllSlots[i] {
			t.Errorf("summary %d = %+v, want empty slot %d", i, s, save.AllSlots[i])
		}
	}
}
