package domain

import "time"

// History actions besides the lifecycle trigger names.
const (
	ActionCreate            = "create"
	ActionFeature           = "feature"
	ActionUnfeature         = "unfeature"
	ActionSchedule          = "schedule"
	ActionScheduleCancelled = "schedule_cancelled"
	ActionPublishFailed     = "publish_failed"
	ActionDispatchPrefix    = "dispatch:"
	ActionDispatchFailed    = "dispatch_failed:"
	ActionStepPrefix        = "step."
)

// HistoryEntry is one immutable line of an item's audit trail.
type HistoryEntry struct {
	ID                string          `json:"id"`
	ContentID         string          `json:"content_id"`
	Seq               int64           `json:"seq"`
	ActorID           string          `json:"actor_id"`
	Action            string          `json:"action"`
	Timestamp         time.Time       `json:"timestamp"`
	FromStatus        Status          `json:"from_status"`
	ToStatus          Status          `json:"to_status"`
	Comment           string          `json:"comment,omitempty"`
	ChecklistSnapshot ChecklistResult `json:"checklist_snapshot,omitempty"`
}
