// Package checklist scores reviewer judgments against the review checklist.
// Every function is pure; callers own any session state.
package checklist

import (
	"fmt"
	"math"
	"strings"

	"ListingFlow/internal/domain"
)

// Evaluation is the UI-facing summary of a checklist result.
type Evaluation struct {
	Score           int      `json:"score"`
	CanApprove      bool     `json:"can_approve"`
	Passed          int      `json:"passed"`
	Evaluated       int      `json:"evaluated"`
	Total           int      `json:"total"`
	FailingRequired []string `json:"failing_required,omitempty"`
}

// Evaluate scores result and lists the required items blocking approval.
func Evaluate(result domain.ChecklistResult, def domain.ChecklistDefinition) Evaluation {
	passed, evaluated, total := tally(result, def)
	failing := FailingRequired(result, def)
	return Evaluation{
		Score:           percent(passed, evaluated),
		CanApprove:      len(failing) == 0,
		Passed:          passed,
		Evaluated:       evaluated,
		Total:           total,
		FailingRequired: failing,
	}
}

// Score returns round(100 * passed / evaluated); 0 when nothing was evaluated.
// Items missing from result are unset and count in neither term.
func Score(result domain.ChecklistResult, def domain.ChecklistDefinition) int {
	passed, evaluated, _ := tally(result, def)
	return percent(passed, evaluated)
}

// CanApprove is true iff every required item has a pass verdict.
func CanApprove(result domain.ChecklistResult, def domain.ChecklistDefinition) bool {
	return len(FailingRequired(result, def)) == 0
}

// FailingRequired lists required item ids whose verdict is not pass, in definition order.
func FailingRequired(result domain.ChecklistResult, def domain.ChecklistDefinition) []string {
	var failing []string
	for _, item := range def.Items() {
		if !item.Required {
			continue
		}
		if result[item.ID].Verdict != domain.VerdictPass {
			failing = append(failing, item.ID)
		}
	}
	return failing
}

// Normalize returns a result holding exactly the definition's items, with
// untouched ones defaulted to na. Used for the history snapshot.
func Normalize(result domain.ChecklistResult, def domain.ChecklistDefinition) domain.ChecklistResult {
	items := def.Items()
	out := make(domain.ChecklistResult, len(items))
	for _, item := range items {
		mark := result[item.ID]
		if mark.Verdict == domain.VerdictUnset {
			mark.Verdict = domain.VerdictNA
		}
		out[item.ID] = mark
	}
	return out
}

// Validate rejects marks for unknown items and unknown verdicts. It returns a
// copy of result with every verdict in canonical form.
func Validate(result domain.ChecklistResult, def domain.ChecklistDefinition) (domain.ChecklistResult, error) {
	out := make(domain.ChecklistResult, len(result))
	for id, mark := range result {
		if _, ok := def.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: checklist item %q", domain.ErrNotFound, id)
		}
		if strings.TrimSpace(string(mark.Verdict)) == "" {
			mark.Verdict = domain.VerdictUnset
			out[id] = mark
			continue
		}
		verdict, ok := domain.ParseVerdict(string(mark.Verdict))
		if !ok {
			return nil, fmt.Errorf("%w: verdict %q for %s", domain.ErrInvalidInput, mark.Verdict, id)
		}
		mark.Verdict = verdict
		out[id] = mark
	}
	return out, nil
}

// GuardMessage renders the approval blocker the way the UI shows it.
func GuardMessage(failing []string) string {
	noun := "items"
	if len(failing) == 1 {
		noun = "item"
	}
	return fmt.Sprintf("%d required checklist %s still failing: %s", len(failing), noun, strings.Join(failing, ", "))
}

func tally(result domain.ChecklistResult, def domain.ChecklistDefinition) (passed, evaluated, total int) {
	for _, item := range def.Items() {
		total++
		switch result[item.ID].Verdict {
		case domain.VerdictUnset:
		case domain.VerdictPass:
			passed++
			evaluated++
		default:
			evaluated++
		}
	}
	return passed, evaluated, total
}

func percent(passed, evaluated int) int {
	if evaluated == 0 {
		return 0
	}
	return int(math.Round(100 * float64(passed) / float64(evaluated)))
}
