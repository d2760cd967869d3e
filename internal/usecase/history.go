package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/ports"
)

// HistoryLog is the append-only audit trail shared by every item.
// Entries of one item get strictly increasing timestamps and sequence numbers.
type HistoryLog struct {
	mu      sync.Mutex
	entries map[string][]domain.HistoryEntry
	repo    ports.HistoryRepository
	now     func() time.Time
}

// NewHistoryLog builds a log persisting through repo when it is non-nil.
func NewHistoryLog(repo ports.HistoryRepository, now func() time.Time) *HistoryLog {
	if now == nil {
		now = time.Now
	}
	return &HistoryLog{entries: map[string][]domain.HistoryEntry{}, repo: repo, now: now}
}

// Record stamps, persists and appends entry. The caller must hold the item's
// lock, so no other Record for the same item runs between stamp and append.
func (l *HistoryLog) Record(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	l.mu.Lock()
	prev := l.entries[entry.ContentID]
	ts := l.now().UTC()
	if n := len(prev); n > 0 && !ts.After(prev[n-1].Timestamp) {
		ts = prev[n-1].Timestamp.Add(time.Microsecond)
	}
	entry.Seq = int64(len(prev) + 1)
	l.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = ts
	entry.ChecklistSnapshot = entry.ChecklistSnapshot.Clone()

	if l.repo != nil {
		if err := l.repo.AppendHistory(ctx, entry); err != nil {
			return domain.HistoryEntry{}, fmt.Errorf("append history: %w", err)
		}
	}

	l.mu.Lock()
	l.entries[entry.ContentID] = append(l.entries[entry.ContentID], entry)
	l.mu.Unlock()
	return entry, nil
}

// Entries returns a copy of an item's history in order.
func (l *HistoryLog) Entries(contentID string) []domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.entries[contentID]
	out := make([]domain.HistoryEntry, len(src))
	copy(out, src)
	return out
}


// seed installs previously persisted entries during restore.
func (l *HistoryLog) seed(contentID string, entries []domain.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]domain.HistoryEntry, len(entries))
	copy(cp, entries)
	l.entries[contentID] = cp
}
