package scheduler

import (
	"context"
	"sync"
	"time"

	"ListingFlow/internal/ports"
)

// TimerScheduler arms one-shot callbacks on runtime timers and can disarm
// everything still pending on shutdown.
type TimerScheduler struct {
	mu      sync.Mutex
	pending map[*timer]struct{}
	stopped bool
}

var _ ports.Timers = (*TimerScheduler)(nil)

type timer struct {
	owner *TimerScheduler
	t     *time.Timer
}

// NewTimerScheduler builds an empty scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{pending: map[*timer]struct{}{}}
}

// AfterFunc runs fn on its own goroutine once d elapsed. After Stop the
// returned handle is inert and fn never runs.
func (s *TimerScheduler) AfterFunc(d time.Duration, fn func()) ports.TimerHandle {
	h := &timer{owner: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return h
	}
	h.t = time.AfterFunc(d, func() {
		s.release(h)
		fn()
	})
	s.pending[h] = struct{}{}
	return h
}

// Pending counts armed callbacks that have neither fired nor been stopped.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop disarms every pending callback.
func (s *TimerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for h := range s.pending {
		h.t.Stop()
		delete(s.pending, h)
	}
	return ctx.Err()
}

func (s *TimerScheduler) release(h *timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Stop disarms this callback. It reports false when it already fired.
func (h *timer) Stop() bool {
	if h.t == nil {
		return false
	}
	stopped := h.t.Stop()
	h.owner.release(h)
	return stopped
}
