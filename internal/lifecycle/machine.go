// Package lifecycle owns the content status enum transitions as a lookup
// table of (status, trigger) -> (guard, next status).
package lifecycle

import (
	"fmt"
	"strings"

	"ListingFlow/internal/checklist"
	"ListingFlow/internal/domain"
)

// Trigger names a lifecycle transition.
type Trigger string

const (
	TriggerSubmit         Trigger = "submit"
	TriggerApprove        Trigger = "approve"
	TriggerReject         Trigger = "reject"
	TriggerRequestChanges Trigger = "request_changes"
	TriggerPublish        Trigger = "publish"
	TriggerArchive        Trigger = "archive"
	TriggerResubmit       Trigger = "resubmit"
)

var allTriggers = []Trigger{
	TriggerSubmit,
	TriggerApprove,
	TriggerReject,
	TriggerRequestChanges,
	TriggerPublish,
	TriggerArchive,
	TriggerResubmit,
}

// ParseTrigger accepts snake, kebab and camel spellings.
func ParseTrigger(value string) (Trigger, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "requestchanges" {
		normalized = string(TriggerRequestChanges)
	}
	for _, t := range allTriggers {
		if string(t) == normalized {
			return t, true
		}
	}
	return "", false
}

// RecordsChecklist reports whether a history entry for t carries the checklist snapshot.
func (t Trigger) RecordsChecklist() bool {
	switch t {
	case TriggerApprove, TriggerReject, TriggerRequestChanges:
		return true
	default:
		return false
	}
}

// Gate exposes guard inputs for one item at evaluation time.
type Gate interface {
	// ChecklistFailures lists required checklist items without a pass verdict.
	ChecklistFailures() []string
	// OutstandingSteps lists required workflow steps that are not completed.
	OutstandingSteps() []string
}

// StaticGate is a Gate over precomputed values.
type StaticGate struct {
	Failing     []string
	Outstanding []string
}

func (g StaticGate) ChecklistFailures() []string { return g.Failing }
func (g StaticGate) OutstandingSteps() []string  { return g.Outstanding }

type guardFunc func(Gate) error

type edge struct {
	from    domain.Status
	trigger Trigger
}

type transition struct {
	next  domain.Status
	guard guardFunc
}

var defaultTable = map[edge]transition{
	{domain.StatusDraft, TriggerSubmit}:           {next: domain.StatusPending},
	{domain.StatusPending, TriggerApprove}:        {next: domain.StatusApproved, guard: checklistGuard},
	{domain.StatusPending, TriggerReject}:         {next: domain.StatusRejected},
	{domain.StatusPending, TriggerRequestChanges}: {next: domain.StatusDraft},
	{domain.StatusApproved, TriggerPublish}:       {next: domain.StatusPublished, guard: stepsGuard},
	{domain.StatusPublished, TriggerArchive}:      {next: domain.StatusArchived},
	{domain.StatusRejected, TriggerArchive}:       {next: domain.StatusArchived},
	{domain.StatusRejected, TriggerResubmit}:      {next: domain.StatusDraft},
}

// Machine evaluates transitions. It holds no per-item state.
type Machine struct {
	table map[edge]transition
}

// New returns the content lifecycle machine.
func New() *Machine {
	return &Machine{table: defaultTable}
}

// Next returns the status trigger leads to from the given status, or an
// ErrIllegalTransition / ErrGuardViolation error. It never mutates anything.
func (m *Machine) Next(from domain.Status, trigger Trigger, gate Gate) (domain.Status, error) {
	tr, ok := m.table[edge{from: from, trigger: trigger}]
	if !ok {
		return from, fmt.Errorf("%w: %s is not allowed from %s", domain.ErrIllegalTransition, trigger, from)
	}
	if tr.guard != nil {
		if gate == nil {
			return from, fmt.Errorf("%w: %s requires guard inputs", domain.ErrGuardViolation, trigger)
		}
		if err := tr.guard(gate); err != nil {
			return from, err
		}
	}
	return tr.next, nil
}

// Defined reports whether trigger exists from the status, ignoring guards.
func (m *Machine) Defined(from domain.Status, trigger Trigger) bool {
	_, ok := m.table[edge{from: from, trigger: trigger}]
	return ok
}

// Allowed lists the triggers defined from the status, in canonical order.
func (m *Machine) Allowed(from domain.Status) []Trigger {
	var out []Trigger
	for _, t := range allTriggers {
		if m.Defined(from, t) {
			out = append(out, t)
		}
	}
	return out
}

func checklistGuard(g Gate) error {
	if failing := g.ChecklistFailures(); len(failing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrGuardViolation, checklist.GuardMessage(failing))
	}
	return nil
}

func stepsGuard(g Gate) error {
	outstanding := g.OutstandingSteps()
	if len(outstanding) == 0 {
		return nil
	}
	noun := "steps"
	if len(outstanding) == 1 {
		noun = "step"
	}
	return fmt.Errorf("%w: %d required workflow %s not completed: %s",
		domain.ErrGuardViolation, len(outstanding), noun, strings.Join(outstanding, ", "))
}
