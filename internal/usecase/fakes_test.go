package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ListingFlow/internal/checklist"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/ports"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// fakeClock drives both now() and the timers so tests decide when triggers fire.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) ports.TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock and runs every due callback in instant order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

func (c *fakeClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// drain waits for dispatch and publish goroutines started so far.
func (p *Publisher) drain() {
	p.inflight.Wait()
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(_ context.Context, event domain.DispatchEvent) error {
	return m.Called(event.Channel, event.ContentID).Error(0)
}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) NotifyDispatchFailure(_ context.Context, event domain.DispatchEvent, cause error) error {
	return m.Called(event.Channel, event.ContentID).Error(0)
}

// memStore implements every repository port in memory.
type memStore struct {
	mu        sync.Mutex
	items     map[string]domain.ItemSnapshot
	history   map[string][]domain.HistoryEntry
	schedules map[string]domain.PublicationSchedule
}

func newMemStore() *memStore {
	return &memStore{
		items:     map[string]domain.ItemSnapshot{},
		history:   map[string][]domain.HistoryEntry{},
		schedules: map[string]domain.PublicationSchedule{},
	}
}

func (s *memStore) SaveItem(_ context.Context, snap domain.ItemSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[snap.Item.ID] = snap
	return nil
}

func (s *memStore) LoadItems(context.Context) ([]domain.ItemSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ItemSnapshot, 0, len(s.items))
	for _, snap := range s.items {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out, nil
}

func (s *memStore) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.ContentID] = append(s.history[entry.ContentID], entry)
	return nil
}

func (s *memStore) LoadHistory(_ context.Context, contentID string) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryEntry(nil), s.history[contentID]...), nil
}

func (s *memStore) SaveSchedule(_ context.Context, sched domain.PublicationSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sched.ID] = sched.Clone()
	return nil
}

func (s *memStore) MarkTriggerFired(_ context.Context, scheduleID string, index int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[scheduleID]
	if !ok {
		return domain.ErrNotFound
	}
	sched.Channels[index].FiredAt = &at
	s.schedules[scheduleID] = sched
	return nil
}

func (s *memStore) DeleteSchedule(_ context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schedules, scheduleID)
	return nil
}

func (s *memStore) LoadSchedules(context.Context) ([]domain.PublicationSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PublicationSchedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched.Clone())
	}
	return out, nil
}

func defaultTestChannels() []domain.ChannelTrigger {
	return []domain.ChannelTrigger{
		{Channel: domain.ChannelContent, Enabled: true},
		{Channel: domain.SocialChannel("telegram"), Enabled: true},
		{Channel: domain.ChannelEmail, Enabled: true, Offset: time.Hour},
	}
}

type harness struct {
	wf         *Workflow
	clock      *fakeClock
	store      *memStore
	dispatcher *mockDispatcher
	alerts     *mockAlerts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, newMemStore(), newFakeClock(baseTime))
}

func newHarnessWith(t *testing.T, store *memStore, clock *fakeClock) *harness {
	t.Helper()
	h := &harness{
		clock:      clock,
		store:      store,
		dispatcher: &mockDispatcher{},
		alerts:     &mockAlerts{},
	}
	h.wf = NewWorkflow(WorkflowDeps{
		Items:           store,
		History:         store,
		Schedules:       store,
		Dispatcher:      h.dispatcher,
		Alerts:          h.alerts,
		Timers:          clock,
		DefaultChannels: defaultTestChannels(),
		Now:             clock.Now,
	})
	t.Cleanup(func() {
		_ = h.wf.Close(context.Background())
	})
	return h
}

func passingResult() domain.ChecklistResult {
	res := domain.ChecklistResult{}
	for _, item := range checklist.Default().Items() {
		if item.Required {
			res[item.ID] = domain.ChecklistMark{Verdict: domain.VerdictPass}
		}
	}
	return res
}

var reviewer = Intent{Actor: "reviewer-1"}

// register creates a draft item.
func (h *harness) register(t *testing.T, id string) {
	t.Helper()
	_, err := h.wf.Register(context.Background(), domain.ContentItem{
		ID:      id,
		Kind:    domain.KindExperience,
		Title:   "Sunset kayak tour " + id,
		Summary: "<p>Paddle along the <b>coast</b>.</p>",
		URL:     "https://example.org/experiences/" + id,
	}, Intent{Actor: "author-1"})
	require.NoError(t, err)
}

// approve brings a new item to approved.
func (h *harness) approve(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	h.register(t, id)
	_, err := h.wf.Submit(ctx, id, Intent{Actor: "author-1"})
	require.NoError(t, err)
	_, err = h.wf.Approve(ctx, id, reviewer, passingResult())
	require.NoError(t, err)
}

// ready brings a new item to approved with every required step completed.
func (h *harness) ready(t *testing.T, id string) {
	t.Helper()
	h.approve(t, id)
	h.completeRequired(t, id)
}

func (h *harness) completeRequired(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	view, err := h.wf.View(id)
	require.NoError(t, err)
	for _, stepID := range view.OutstandingSteps {
		_, err := h.wf.StartStep(ctx, id, stepID, reviewer)
		require.NoError(t, err)
		_, err = h.wf.CompleteStep(ctx, id, stepID, reviewer)
		require.NoError(t, err)
	}
}

func (h *harness) status(t *testing.T, id string) domain.Status {
	t.Helper()
	view, err := h.wf.View(id)
	require.NoError(t, err)
	return view.Item.Status
}

func actions(entries []domain.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}
