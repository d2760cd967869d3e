// Package steps tracks the ordered preparation steps of an item's workflow.
// A Tracker is not safe for concurrent use; the owning item record serializes access.
package steps

import (
	"fmt"
	"strings"
	"time"

	"ListingFlow/internal/domain"
)

// Op is a step operation name.
type Op string

const (
	OpStart    Op = "start"
	OpComplete Op = "complete"
	OpFail     Op = "fail"
	OpReopen   Op = "reopen"
)

// ParseOp validates a step operation name.
func ParseOp(value string) (Op, bool) {
	switch op := Op(strings.ToLower(strings.TrimSpace(value))); op {
	case OpStart, OpComplete, OpFail, OpReopen:
		return op, true
	default:
		return "", false
	}
}

// Tracker holds one item's steps in template order.
type Tracker struct {
	steps []domain.WorkflowStep
	now   func() time.Time
}

// NewTracker seeds every step of the template as pending.
func NewTracker(template []Template, now func() time.Time) *Tracker {
	steps := make([]domain.WorkflowStep, 0, len(template))
	for _, tpl := range template {
		steps = append(steps, domain.WorkflowStep{
			ID:         tpl.ID,
			Name:       tpl.Name,
			IsRequired: tpl.Required,
			Status:     domain.StepPending,
		})
	}
	return &Tracker{steps: steps, now: clock(now)}
}

// Restore rebuilds a tracker from persisted steps.
func Restore(steps []domain.WorkflowStep, now func() time.Time) *Tracker {
	t := &Tracker{now: clock(now)}
	t.steps = copySteps(steps)
	return t
}

// Apply dispatches op to the matching method.
func (t *Tracker) Apply(op Op, id, comment string) error {
	switch op {
	case OpStart:
		return t.Start(id)
	case OpComplete:
		return t.Complete(id, comment)
	case OpFail:
		return t.Fail(id, comment)
	case OpReopen:
		return t.Reopen(id)
	default:
		return fmt.Errorf("%w: step operation %q", domain.ErrInvalidInput, op)
	}
}

// Start moves a pending step to in_progress.
func (t *Tracker) Start(id string) error {
	step, err := t.find(id)
	if err != nil {
		return err
	}
	if step.Status != domain.StepPending {
		return invalid(OpStart, step)
	}
	now := t.now()
	step.Status = domain.StepInProgress
	step.StartedAt = &now
	return nil
}

// Complete finishes an in_progress step, or a failed one on the retry path.
func (t *Tracker) Complete(id, comment string) error {
	step, err := t.find(id)
	if err != nil {
		return err
	}
	if step.Status != domain.StepInProgress && step.Status != domain.StepFailed {
		return invalid(OpComplete, step)
	}
	now := t.now()
	step.Status = domain.StepCompleted
	step.CompletedAt = &now
	setComment(step, comment)
	return nil
}

// Fail marks an in_progress step as failed.
func (t *Tracker) Fail(id, comment string) error {
	step, err := t.find(id)
	if err != nil {
		return err
	}
	if step.Status != domain.StepInProgress {
		return invalid(OpFail, step)
	}
	step.Status = domain.StepFailed
	setComment(step, comment)
	return nil
}

// Reopen moves a completed step back to in_progress.
func (t *Tracker) Reopen(id string) error {
	step, err := t.find(id)
	if err != nil {
		return err
	}
	if step.Status != domain.StepCompleted {
		return invalid(OpReopen, step)
	}
	step.Status = domain.StepInProgress
	step.CompletedAt = nil
	return nil
}

// Assign sets or clears the step's assignee.
func (t *Tracker) Assign(id, assignee string) error {
	step, err := t.find(id)
	if err != nil {
		return err
	}
	step.Assignee = strings.TrimSpace(assignee)
	return nil
}

// AllRequiredCompleted is true iff every required step is completed.
func (t *Tracker) AllRequiredCompleted() bool {
	return len(t.Outstanding()) == 0
}

// Outstanding lists required steps that are not completed.
func (t *Tracker) Outstanding() []string {
	var out []string
	for _, step := range t.steps {
		if step.IsRequired && step.Status != domain.StepCompleted {
			out = append(out, step.ID)
		}
	}
	return out
}

// Progress is completed / total over all steps, for display only.
func (t *Tracker) Progress() float64 {
	if len(t.steps) == 0 {
		return 0
	}
	done := 0
	for _, step := range t.steps {
		if step.Status == domain.StepCompleted {
			done++
		}
	}
	return float64(done) / float64(len(t.steps))
}

// Steps returns a copy of the steps in order.
func (t *Tracker) Steps() []domain.WorkflowStep {
	return copySteps(t.steps)
}

// Clone returns an independent tracker so callers can validate before committing.
func (t *Tracker) Clone() *Tracker {
	return &Tracker{steps: copySteps(t.steps), now: t.now}
}

func (t *Tracker) find(id string) (*domain.WorkflowStep, error) {
	for i := range t.steps {
		if t.steps[i].ID == id {
			return &t.steps[i], nil
		}
	}
	return nil, fmt.Errorf("%w: workflow step %q", domain.ErrNotFound, id)
}

func invalid(op Op, step *domain.WorkflowStep) error {
	return fmt.Errorf("%w: cannot %s step %s while %s", domain.ErrInvalidStepState, op, step.ID, step.Status)
}

func setComment(step *domain.WorkflowStep, comment string) {
	if c := strings.TrimSpace(comment); c != "" {
		step.Comments = c
	}
}

func copySteps(in []domain.WorkflowStep) []domain.WorkflowStep {
	out := make([]domain.WorkflowStep, len(in))
	for i, step := range in {
		if step.StartedAt != nil {
			at := *step.StartedAt
			step.StartedAt = &at
		}
		if step.CompletedAt != nil {
			at := *step.CompletedAt
			step.CompletedAt = &at
		}
		out[i] = step
	}
	return out
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
