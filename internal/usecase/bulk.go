package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/lifecycle"
	"ListingFlow/internal/steps"
)

const defaultBulkWorkers = 4

// BulkAction is one action applied to many items.
type BulkAction struct {
	Trigger  lifecycle.Trigger
	Featured *bool
	StepOp   steps.Op
	StepID   string
}

// ParseBulkAction accepts a lifecycle trigger name, feature, unfeature or
// step.<op> (the latter needs stepID).
func ParseBulkAction(name, stepID string) (BulkAction, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case domain.ActionFeature, domain.ActionUnfeature:
		featured := name == domain.ActionFeature
		return BulkAction{Featured: &featured}, nil
	}
	if rest, ok := strings.CutPrefix(name, domain.ActionStepPrefix); ok {
		op, ok := steps.ParseOp(rest)
		if !ok {
			return BulkAction{}, fmt.Errorf("%w: step operation %q", domain.ErrInvalidInput, rest)
		}
		if strings.TrimSpace(stepID) == "" {
			return BulkAction{}, fmt.Errorf("%w: %s needs a step id", domain.ErrInvalidInput, name)
		}
		return BulkAction{StepOp: op, StepID: strings.TrimSpace(stepID)}, nil
	}
	trigger, ok := lifecycle.ParseTrigger(name)
	if !ok {
		return BulkAction{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, name)
	}
	return BulkAction{Trigger: trigger}, nil
}

// BulkResult is the per-item outcome of a bulk action.
type BulkResult struct {
	Success bool             `json:"success"`
	Status  domain.Status    `json:"status,omitempty"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Bulk applies action to every id independently on a bounded worker pool.
// One item's failure never affects another; duplicate ids run once.
func (w *Workflow) Bulk(ctx context.Context, ids []string, action BulkAction, in Intent) map[string]BulkResult {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	results := make(map[string]BulkResult, len(unique))
	var mu sync.Mutex
	jobs := make(chan string)
	var wg sync.WaitGroup

	workers := w.bulkWorkers
	if workers > len(unique) {
		workers = len(unique)
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				res := w.bulkOne(ctx, id, action, in)
				mu.Lock()
				results[id] = res
				mu.Unlock()
			}
		}()
	}
	for _, id := range unique {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	w.logger.Info("bulk action applied", "items", len(unique), "trigger", action.Trigger, "step_op", action.StepOp)
	return results
}

func (w *Workflow) bulkOne(ctx context.Context, id string, action BulkAction, in Intent) BulkResult {
	if err := ctx.Err(); err != nil {
		return failure(err)
	}
	var (
		item domain.ContentItem
		err  error
	)
	switch {
	case action.Featured != nil:
		var out Outcome
		out, err = w.SetFeatured(ctx, id, in, *action.Featured)
		item = out.Item
	case action.StepOp != "":
		_, err = w.StepAction(ctx, id, action.StepOp, action.StepID, in)
		if err == nil {
			item, err = w.itemSnapshot(id)
		}
	default:
		var out Outcome
		out, err = w.Apply(ctx, id, action.Trigger, in)
		item = out.Item
	}
	if err != nil {
		return failure(err)
	}
	return BulkResult{Success: true, Status: item.Status}
}

func failure(err error) BulkResult {
	return BulkResult{Kind: domain.KindOf(err), Error: err.Error()}
}
