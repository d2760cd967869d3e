package domain

import "time"

// StepStatus tracks a single preparation step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// WorkflowStep is one named preparation step of an item's in-flight workflow.
type WorkflowStep struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IsRequired  bool       `json:"is_required"`
	Status      StepStatus `json:"status"`
	Assignee    string     `json:"assignee,omitempty"`
	Comments    string     `json:"comments,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
