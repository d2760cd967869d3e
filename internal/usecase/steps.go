package usecase

import (
	"context"
	"fmt"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/steps"
)

// StepOutcome is the result of a step operation.
type StepOutcome struct {
	Step     domain.WorkflowStep `json:"step"`
	Progress float64             `json:"progress"`
	Entry    domain.HistoryEntry `json:"entry"`
}

// StartStep moves a pending step to in_progress.
func (w *Workflow) StartStep(ctx context.Context, id, stepID string, in Intent) (StepOutcome, error) {
	return w.StepAction(ctx, id, steps.OpStart, stepID, in)
}

// CompleteStep finishes an in-progress or failed step.
func (w *Workflow) CompleteStep(ctx context.Context, id, stepID string, in Intent) (StepOutcome, error) {
	return w.StepAction(ctx, id, steps.OpComplete, stepID, in)
}

// FailStep marks an in-progress step as failed.
func (w *Workflow) FailStep(ctx context.Context, id, stepID string, in Intent) (StepOutcome, error) {
	return w.StepAction(ctx, id, steps.OpFail, stepID, in)
}

// ReopenStep moves a completed step back to in_progress.
func (w *Workflow) ReopenStep(ctx context.Context, id, stepID string, in Intent) (StepOutcome, error) {
	return w.StepAction(ctx, id, steps.OpReopen, stepID, in)
}

// StepAction applies op to one step of the item. The change is validated on
// a copy of the tracker and only kept once its history entry is recorded.
func (w *Workflow) StepAction(ctx context.Context, id string, op steps.Op, stepID string, in Intent) (StepOutcome, error) {
	var out StepOutcome
	err := w.withItem(id, func(rec *itemRecord) error {
		if rec.steps == nil {
			return fmt.Errorf("%w: item %q has no active workflow steps", domain.ErrNotFound, id)
		}
		next := rec.steps.Clone()
		if err := next.Apply(op, stepID, in.Comment); err != nil {
			return err
		}
		return w.commitSteps(ctx, rec, next, stepID, domain.ActionStepPrefix+string(op)+":"+stepID, in, &out)
	})
	return out, err
}

// AssignStep sets or clears the assignee of a step.
func (w *Workflow) AssignStep(ctx context.Context, id, stepID, assignee string, in Intent) (StepOutcome, error) {
	var out StepOutcome
	err := w.withItem(id, func(rec *itemRecord) error {
		if rec.steps == nil {
			return fmt.Errorf("%w: item %q has no active workflow steps", domain.ErrNotFound, id)
		}
		next := rec.steps.Clone()
		if err := next.Assign(stepID, assignee); err != nil {
			return err
		}
		if in.Comment == "" {
			in.Comment = assignee
		}
		return w.commitSteps(ctx, rec, next, stepID, domain.ActionStepPrefix+"assign:"+stepID, in, &out)
	})
	return out, err
}

func (w *Workflow) commitSteps(ctx context.Context, rec *itemRecord, next *steps.Tracker, stepID, action string, in Intent, out *StepOutcome) error {
	entry, err := w.noteLocked(ctx, rec, in.actor(), action, in.Comment)
	if err != nil {
		return err
	}
	rec.steps = next
	rec.item.UpdatedAt = entry.Timestamp
	w.persist(ctx, rec)

	for _, step := range next.Steps() {
		if step.ID == stepID {
			out.Step = step
		}
	}
	out.Progress = next.Progress()
	out.Entry = entry
	return nil
}
