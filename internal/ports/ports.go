package ports

import (
	"context"
	"time"

	"ListingFlow/internal/domain"
)

// ItemRepository persists the workflow-owned state of content items.
type ItemRepository interface {
	SaveItem(ctx context.Context, snapshot domain.ItemSnapshot) error
	LoadItems(ctx context.Context) ([]domain.ItemSnapshot, error)
}

// HistoryRepository stores the append-only audit trail.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	LoadHistory(ctx context.Context, contentID string) ([]domain.HistoryEntry, error)
}

// ScheduleRepository keeps armed publication schedules across restarts.
type ScheduleRepository interface {
	SaveSchedule(ctx context.Context, schedule domain.PublicationSchedule) error
	MarkTriggerFired(ctx context.Context, scheduleID string, index int, at time.Time) error
	DeleteSchedule(ctx context.Context, scheduleID string) error
	LoadSchedules(ctx context.Context) ([]domain.PublicationSchedule, error)
}

// Dispatcher hands a fired social or email trigger to its outbound channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.DispatchEvent) error
}

// AlertNotifier is told about dispatch failures (ops chat, pager...).
type AlertNotifier interface {
	NotifyDispatchFailure(ctx context.Context, event domain.DispatchEvent, cause error) error
}

// TimerHandle disarms a single armed callback.
type TimerHandle interface {
	Stop() bool
}

// Timers arms one-shot callbacks on their own goroutines.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) TimerHandle
}
