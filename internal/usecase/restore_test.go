package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ListingFlow/internal/domain"
)

func TestRestore_RebuildsItemsHistoryAndSchedules(t *testing.T) {
	store := newMemStore()
	first := newHarnessWith(t, store, newFakeClock(baseTime))
	first.dispatcher.On("Dispatch", mock.Anything, "exp-1").Return(nil)
	first.ready(t, "exp-1")
	ctx := context.Background()

	_, err := first.wf.Schedule(ctx, "exp-1", Intent{}, berlinRequest("2025-06-02",
		domain.ChannelTrigger{Channel: domain.ChannelContent, Enabled: true},
		domain.ChannelTrigger{Channel: telegram, Enabled: true, Offset: 30 * time.Minute},
	))
	require.NoError(t, err)

	first.clock.Advance(21 * time.Hour)
	first.wf.publisher.drain()
	require.Equal(t, domain.StatusPublished, first.status(t, "exp-1"))
	require.NoError(t, first.wf.Close(ctx))
	before, err := first.wf.History("exp-1")
	require.NoError(t, err)

	second := newHarnessWith(t, store, newFakeClock(first.clock.Now()))
	second.dispatcher.On("Dispatch", telegram, "exp-1").Return(nil)
	require.NoError(t, second.wf.Restore(ctx))

	assert.Equal(t, domain.StatusPublished, second.status(t, "exp-1"))
	after, err := second.wf.History("exp-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	view, err := second.wf.View("exp-1")
	require.NoError(t, err)
	require.Len(t, view.Schedules, 1)
	assert.NotNil(t, view.Schedules[0].Triggers[0].FiredAt)
	assert.Equal(t, 1, second.clock.Armed())

	second.clock.Advance(30 * time.Minute)
	second.wf.publisher.drain()
	second.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
	first.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)

	history, err := second.wf.History("exp-1")
	require.NoError(t, err)
	assert.Equal(t, len(before)+1, len(history))
	assert.Equal(t, int64(len(history)), history[len(history)-1].Seq)
}

func TestRestore_ReconcilesStatusFromHistory(t *testing.T) {
	store := newMemStore()
	first := newHarnessWith(t, store, newFakeClock(baseTime))
	first.approve(t, "exp-1")

	stale := store.items["exp-1"]
	stale.Item.Status = domain.StatusPending
	store.items["exp-1"] = stale

	second := newHarnessWith(t, store, newFakeClock(baseTime))
	require.NoError(t, second.wf.Restore(context.Background()))
	assert.Equal(t, domain.StatusApproved, second.status(t, "exp-1"))

	view, err := second.wf.View("exp-1")
	require.NoError(t, err)
	assert.Len(t, view.Steps, 5)
}

func TestRestore_KeepsStepProgress(t *testing.T) {
	store := newMemStore()
	first := newHarnessWith(t, store, newFakeClock(baseTime))
	first.approve(t, "exp-1")
	_, err := first.wf.StartStep(context.Background(), "exp-1", "media", reviewer)
	require.NoError(t, err)

	second := newHarnessWith(t, store, newFakeClock(baseTime))
	require.NoError(t, second.wf.Restore(context.Background()))

	out, err := second.wf.CompleteStep(context.Background(), "exp-1", "media", reviewer)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCompleted, out.Step.Status)
}
