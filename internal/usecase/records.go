package usecase

import (
	"fmt"
	"sort"
	"sync"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/steps"
)

// itemRecord owns one content item's mutable workflow state. Every read or
// write of its fields happens under mu.
type itemRecord struct {
	mu       sync.Mutex
	item     domain.ContentItem
	steps    *steps.Tracker
	review   domain.ChecklistResult
	reviewer string
}

func (r *itemRecord) snapshot() domain.ItemSnapshot {
	snap := domain.ItemSnapshot{Item: r.item}
	if r.steps != nil {
		snap.Steps = r.steps.Steps()
	}
	return snap
}

// registry indexes records by id. Its lock guards the map only, never a record.
type registry struct {
	mu    sync.RWMutex
	items map[string]*itemRecord
}

func newRegistry() *registry {
	return &registry{items: map[string]*itemRecord{}}
}

func (r *registry) add(rec *itemRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[rec.item.ID]; exists {
		return false
	}
	r.items[rec.item.ID] = rec
	return true
}

func (r *registry) get(id string) (*itemRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: content item %q", domain.ErrNotFound, id)
	}
	return rec, nil
}

func (r *registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for id := range r.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}
