package save

import "time"

// Summary 是槽位列表使用的只读投影，每次载入都重新生成，从不持久化
type Summary struct {
	SlotNumber     SlotNumber `json:"slotNumber"`
	IsEmpty        bool       `json:"isEmpty"`
	SaveName       string     `json:"saveName,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	CharacterName  string     `json:"characterName,omitempty"`
	CharacterLevel int        `json:"characterLevel,omitempty"`
	PlayTime       int64      `json:"playTime,omitempty"`
}

// BuildSummaries 按 1..3 的固定顺序生成槽位信息，无论哪些槽位有存档
func BuildSummaries(records map[SlotNumber]Record) []Summary {
	summaries := make([]Summary, 0, SlotCount)
	for _, slot := range AllSlots {
		rec, ok := records[slot]
		if !ok {
			summaries = append(summaries, Summary{SlotNumber: slot, IsEmpty: true})
			continue
		}
		updatedAt := rec.UpdatedAt
		summaries = append(summaries, Summary{
			SlotNumber:     slot,
			SaveName:       rec.SaveName,
			UpdatedAt:      &updatedAt,
			CharacterName:  rec.CharacterData.Name,
			CharacterLevel: rec.CharacterData.Level,
			PlayTime:       rec.ProgressData.PlayTime,
		})
	}
	return summaries
}
