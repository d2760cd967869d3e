package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle position of a content item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

var allStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusPublished,
	StatusArchived,
}

// AllStatuses returns the ordered list of lifecycle statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Kind distinguishes the listing flavours handled by the workflow.
type Kind string

const (
	KindExperience    Kind = "experience"
	KindAccommodation Kind = "accommodation"
)

// ParseKind accepts the known listing kinds; empty defaults to experience.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case "", KindExperience:
		return KindExperience, true
	case KindAccommodation:
		return KindAccommodation, true
	default:
		return "", false
	}
}

// ContentItem is a listing as seen by the workflow engine. Everything except
// Status and Featured is owned by the authoring subsystem and read-only here.
type ContentItem struct {
	ID                string    `json:"id"`
	Kind              Kind      `json:"kind"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary,omitempty"`
	URL               string    `json:"url,omitempty"`
	Status            Status    `json:"status"`
	Featured          bool      `json:"featured"`
	VerificationScore int       `json:"verification_score"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ItemSnapshot is the persisted workflow state of one item.
type ItemSnapshot struct {
	Item  ContentItem    `json:"item"`
	Steps []WorkflowStep `json:"steps,omitempty"`
}
