package save_test

import (
	"testing"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func record(name string, level int, updatedAt time.Time) save.Record {
	return save.Record{
		SaveName:  name,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		CharacterData: save.CharacterData{
			Name:  name,
			Level: level,
		},
		ProgressData: save.ProgressData{CurrentChapter: 1, PlayTime: 3600},
	}
}

func TestDetectConflictsRecommendsLaterSide(t *testing.T) {
	local := map[save.SlotNumber]save.Record{1: record("local", 1, baseTime)}
	remote := map[save.SlotNumber]save.Record{1: record("remote", 2, baseTime.Add(2000*time.Millisecond))}

	conflicts := save.DetectConflicts(local, remote, save.DefaultConflictTolerance)
	require.Len(t, conflicts, 1)
	assert.Equal(t, save.SlotNumber(1), conflicts[0].SlotNumber)
	assert.Equal(t, save.RecommendUseRemote, conflicts[0].Recommendation)
	assert.Equal(t, "local", conflicts[0].Local.SaveName)
	assert.Equal(t, "remote", conflicts[0].Remote.SaveName)

	conflicts = save.DetectConflicts(remote, local, save.DefaultConflictTolerance)
	require.Len(t, conflicts, 1)
	assert.Equal(t, save.RecommendUseLocal, conflicts[0].Recommendation)
}

func TestDetectConflictsWithinTolerance(t *testing.T) {
	local := map[save.SlotNumber]save.Record{1: record("a", 1, baseTime)}
	remote := map[save.SlotNumber]save.Record{1: record("b", 1, baseTime.Add(500*time.Millisecond))}

	conflicts := save.DetectConflicts(local, remote, save.DefaultConflictTolerance)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)

	// 恰好等于容差也不算冲突
	remote[1] = record("b", 1, baseTime.Add(time.Second))
	assert.Empty(t, save.DetectConflicts(local, remote, save.DefaultConflictTolerance))
}

func TestDetectConflictsOnlyWhenBothPresent(t *testing.T) {
	local := map[save.SlotNumber]save.Record{
		1: record("a", 1, baseTime),
		2: record("b", 1, baseTime),
	}
	remote := map[save.SlotNumber]save.Record{
		2: record("b", 1, baseTime.Add(-time.Hour)),
		3: record("c", 1, baseTime),
	}

	conflicts := save.DetectConflicts(local, remote, save.DefaultConflictTolerance)
	require.Len(t, conflicts, 1)
	assert.Equal(t, save.SlotNumber(2), conflicts[0].SlotNumber)
	assert.Equal(t, save.RecommendUseLocal, conflicts[0].Recommendation)
}
