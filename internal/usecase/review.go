package usecase

import (
	"context"
	"fmt"
	"strings"

	"ListingFlow/internal/checklist"
	"ListingFlow/internal/domain"
)

// ReviewView is the state of an item's open review session.
type ReviewView struct {
	ContentID  string                 `json:"content_id"`
	Reviewer   string                 `json:"reviewer"`
	Result     domain.ChecklistResult `json:"result"`
	Evaluation checklist.Evaluation   `json:"evaluation"`
}

// OpenReview starts a review session for a pending item. Opening an already
// open session returns it unchanged, except for a new reviewer name.
func (w *Workflow) OpenReview(ctx context.Context, id, reviewer string) (ReviewView, error) {
	var view ReviewView
	err := w.withItem(id, func(rec *itemRecord) error {
		if err := w.ensureReview(rec, reviewer); err != nil {
			return err
		}
		view = w.reviewView(rec)
		return nil
	})
	return view, err
}

// MarkChecklist records one verdict in the item's review session, opening the
// session when needed.
func (w *Workflow) MarkChecklist(ctx context.Context, id, reviewer, itemID string, mark domain.ChecklistMark) (ReviewView, error) {
	var view ReviewView
	err := w.withItem(id, func(rec *itemRecord) error {
		if _, ok := w.checklist.Lookup(itemID); !ok {
			return fmt.Errorf("%w: checklist item %q", domain.ErrNotFound, itemID)
		}
		verdict := domain.VerdictUnset
		if raw := strings.TrimSpace(string(mark.Verdict)); raw != "" {
			var ok bool
			if verdict, ok = domain.ParseVerdict(raw); !ok {
				return fmt.Errorf("%w: verdict %q", domain.ErrInvalidInput, mark.Verdict)
			}
		}
		if err := w.ensureReview(rec, reviewer); err != nil {
			return err
		}
		if verdict == domain.VerdictUnset {
			delete(rec.review, itemID)
		} else {
			rec.review[itemID] = domain.ChecklistMark{Verdict: verdict, Note: strings.TrimSpace(mark.Note)}
		}
		view = w.reviewView(rec)
		return nil
	})
	return view, err
}

// Review returns the open review session of an item.
func (w *Workflow) Review(id string) (ReviewView, error) {
	var view ReviewView
	err := w.withItem(id, func(rec *itemRecord) error {
		if rec.review == nil {
			return fmt.Errorf("%w: no open review for %q", domain.ErrNotFound, id)
		}
		view = w.reviewView(rec)
		return nil
	})
	return view, err
}

func (w *Workflow) ensureReview(rec *itemRecord, reviewer string) error {
	if rec.item.Status != domain.StatusPending {
		return fmt.Errorf("%w: review requires pending status, item is %s", domain.ErrIllegalTransition, rec.item.Status)
	}
	if rec.review == nil {
		rec.review = domain.ChecklistResult{}
	}
	if r := strings.TrimSpace(reviewer); r != "" {
		rec.reviewer = r
	}
	return nil
}

func (w *Workflow) reviewView(rec *itemRecord) ReviewView {
	return ReviewView{
		ContentID:  rec.item.ID,
		Reviewer:   rec.reviewer,
		Result:     rec.review.Clone(),
		Evaluation: checklist.Evaluate(rec.review, w.checklist),
	}
}
