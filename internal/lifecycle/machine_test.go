package lifecycle

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"ListingFlow/internal/domain"
)

func TestLegalTransitions(t *testing.T) {
	t.Parallel()

	m := New()
	open := StaticGate{}
	cases := []struct {
		from    domain.Status
		trigger Trigger
		want    domain.Status
	}{
		{domain.StatusDraft, TriggerSubmit, domain.StatusPending},
		{domain.StatusPending, TriggerApprove, domain.StatusApproved},
		{domain.StatusPending, TriggerReject, domain.StatusRejected},
		{domain.StatusPending, TriggerRequestChanges, domain.StatusDraft},
		{domain.StatusApproved, TriggerPublish, domain.StatusPublished},
		{domain.StatusPublished, TriggerArchive, domain.StatusArchived},
		{domain.StatusRejected, TriggerArchive, domain.StatusArchived},
		{domain.StatusRejected, TriggerResubmit, domain.StatusDraft},
	}
	for _, tc := range cases {
		got, err := m.Next(tc.from, tc.trigger, open)
		if err != nil {
			t.Fatalf("%s from %s: unexpected error %v", tc.trigger, tc.from, err)
		}
		if got != tc.want {
			t.Fatalf("%s from %s: got %s, want %s", tc.trigger, tc.from, got, tc.want)
		}
	}
}

func TestUndefinedTransitionsAreIllegal(t *testing.T) {
	t.Parallel()

	m := New()
	legal := 0
	for _, from := range domain.AllStatuses() {
		for _, trigger := range allTriggers {
			got, err := m.Next(from, trigger, StaticGate{})
			if m.Defined(from, trigger) {
				legal++
				continue
			}
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("%s from %s: expected illegal transition, got %v", trigger, from, err)
			}
			if got != from {
				t.Fatalf("%s from %s: rejected transition reported status %s", trigger, from, got)
			}
		}
	}
	if legal != 8 {
		t.Fatalf("expected 8 legal edges, got %d", legal)
	}

	if allowed := m.Allowed(domain.StatusArchived); len(allowed) != 0 {
		t.Fatalf("archived must be terminal, got %v", allowed)
	}
}

func TestApproveGuard(t *testing.T) {
	t.Parallel()

	m := New()
	got, err := m.Next(domain.StatusPending, TriggerApprove, StaticGate{Failing: []string{"pricing", "title"}})
	if !errors.Is(err, domain.ErrGuardViolation) {
		t.Fatalf("expected guard violation, got %v", err)
	}
	if got != domain.StatusPending {
		t.Fatalf("status changed on guard failure: %s", got)
	}
	if !strings.Contains(err.Error(), "2 required checklist items still failing") {
		t.Fatalf("guard message should name the blocker: %v", err)
	}

	// outstanding steps do not gate approval
	if _, err := m.Next(domain.StatusPending, TriggerApprove, StaticGate{Outstanding: []string{"seo"}}); err != nil {
		t.Fatalf("steps must not gate approve: %v", err)
	}
}

func TestPublishGuard(t *testing.T) {
	t.Parallel()

	m := New()
	_, err := m.Next(domain.StatusApproved, TriggerPublish, StaticGate{Outstanding: []string{"media"}})
	if !errors.Is(err, domain.ErrGuardViolation) {
		t.Fatalf("expected guard violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 required workflow step not completed: media") {
		t.Fatalf("unexpected message %v", err)
	}

	if _, err := m.Next(domain.StatusApproved, TriggerPublish, nil); !errors.Is(err, domain.ErrGuardViolation) {
		t.Fatalf("nil gate must not pass a guarded transition, got %v", err)
	}
}

func TestAllowedAndParse(t *testing.T) {
	t.Parallel()

	m := New()
	want := []Trigger{TriggerApprove, TriggerReject, TriggerRequestChanges}
	if got := m.Allowed(domain.StatusPending); !reflect.DeepEqual(got, want) {
		t.Fatalf("Allowed(pending) = %v, want %v", got, want)
	}

	for _, in := range []string{"request_changes", "request-changes", "requestChanges", " REQUEST_CHANGES "} {
		if got, ok := ParseTrigger(in); !ok || got != TriggerRequestChanges {
			t.Fatalf("ParseTrigger(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseTrigger("feature"); ok {
		t.Fatalf("feature is not a lifecycle trigger")
	}
	if !TriggerReject.RecordsChecklist() || TriggerPublish.RecordsChecklist() {
		t.Fatalf("unexpected checklist snapshot flags")
	}
}
