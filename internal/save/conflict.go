package save

import "time"

// DefaultConflictTolerance 两端更新时间相差超过该值才视为冲突
const DefaultConflictTolerance = time.Second

// Recommendation 是冲突的非强制建议
type Recommendation string

const (
	RecommendUseLocal  Recommendation = "use_local"
	RecommendUseRemote Recommendation = "use_remote"
)

// Choice 是用户解决冲突时的选择
type Choice string

const (
	ChooseLocal  Choice = "local"
	ChooseRemote Choice = "remote"
)

// Conflict 记录同一槽位本地与云端存档的分歧，在载入时生成，下一次载入时被替换
type Conflict struct {
	SlotNumber     SlotNumber     `json:"slotNumber"`
	Local          Record         `json:"localSave"`
	Remote         Record         `json:"remoteSave"`
	Recommendation Recommendation `json:"recommendation"`
}

// DetectConflicts 逐槽比较两端存档的更新时间，差值超过 tolerance 时生成冲突。
// 只比较两端都存在的槽位，建议偏向更新时间较晚的一方，不做任何合并。
func DetectConflicts(local, remote map[SlotNumber]Record, tolerance time.Duration) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, slot := range AllSlots {
		l, okLocal := local[slot]
		r, okRemote := remote[slot]
		if !okLocal || !okRemote {
			continue
		}

		diff := l.UpdatedAt.Sub(r.UpdatedAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			continue
		}

		recommendation := RecommendUseRemote
		if l.UpdatedAt.After(r.UpdatedAt) {
			recommendation = RecommendUseLocal
		}
		conflicts = append(conflicts, Conflict{
			SlotNumber:     slot,
			Local:          l,
			Remote:         r,
			Recommendation: recommendation,
		})
	}
	return conflicts
}
