package usecase

import (
	"ListingFlow/internal/domain"
	"ListingFlow/internal/lifecycle"
)

// ItemView is the read model behind the item detail page.
type ItemView struct {
	Item                 domain.ContentItem    `json:"item"`
	Steps                []domain.WorkflowStep `json:"steps,omitempty"`
	Progress             float64               `json:"progress"`
	OutstandingSteps     []string              `json:"outstanding_steps,omitempty"`
	AllRequiredCompleted bool                  `json:"all_required_completed"`
	AllowedTriggers      []lifecycle.Trigger   `json:"allowed_triggers"`
	Review               *ReviewView           `json:"review,omitempty"`
	Schedules            []ScheduleView        `json:"schedules,omitempty"`
}

// View assembles the current state of one item.
func (w *Workflow) View(id string) (ItemView, error) {
	var view ItemView
	err := w.withItem(id, func(rec *itemRecord) error {
		view = ItemView{
			Item:            rec.item,
			AllowedTriggers: w.machine.Allowed(rec.item.Status),
		}
		if rec.steps != nil {
			view.Steps = rec.steps.Steps()
			view.Progress = rec.steps.Progress()
		}
		view.OutstandingSteps = w.outstanding(rec)
		view.AllRequiredCompleted = len(view.OutstandingSteps) == 0
		if rec.review != nil {
			rv := w.reviewView(rec)
			view.Review = &rv
		}
		view.Schedules = w.publisher.ForContent(id)
		return nil
	})
	return view, err
}
