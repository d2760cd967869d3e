package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ListingFlow/internal/checklist"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/lifecycle"
	"ListingFlow/internal/logging"
	"ListingFlow/internal/ports"
	"ListingFlow/internal/steps"
)

const (
	systemActor    = "system"
	schedulerActor = "scheduler"
)

// WorkflowDeps wires the driven adapters and policy into the workflow.
type WorkflowDeps struct {
	Checklist       domain.ChecklistDefinition
	Steps           []steps.Template
	Items           ports.ItemRepository
	History         ports.HistoryRepository
	Schedules       ports.ScheduleRepository
	Dispatcher      ports.Dispatcher
	Alerts          ports.AlertNotifier
	Timers          ports.Timers
	Location        *time.Location
	DefaultChannels []domain.ChannelTrigger
	BulkWorkers     int
	Now             func() time.Time
	Logger          *slog.Logger
}

// Workflow is the single entry point for every state-changing intent on
// content items. Intents on one item are serialized; different items proceed
// in parallel.
type Workflow struct {
	machine         *lifecycle.Machine
	checklist       domain.ChecklistDefinition
	template        []steps.Template
	records         *registry
	history         *HistoryLog
	items           ports.ItemRepository
	publisher       *Publisher
	location        *time.Location
	defaultChannels []domain.ChannelTrigger
	bulkWorkers     int
	now             func() time.Time
	logger          *slog.Logger
}

// Intent carries who is acting and why.
type Intent struct {
	Actor   string
	Comment string
}

func (in Intent) actor() string {
	if a := strings.TrimSpace(in.Actor); a != "" {
		return a
	}
	return systemActor
}

// Outcome is the result of an accepted intent.
type Outcome struct {
	Item  domain.ContentItem  `json:"item"`
	Entry domain.HistoryEntry `json:"entry"`
}

// NewWorkflow constructs the orchestration component.
func NewWorkflow(deps WorkflowDeps) *Workflow {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	def := deps.Checklist
	if len(def.Categories) == 0 {
		def = checklist.Default()
	}
	template := deps.Steps
	if len(template) == 0 {
		template = steps.DefaultTemplate()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	workers := deps.BulkWorkers
	if workers <= 0 {
		workers = defaultBulkWorkers
	}

	w := &Workflow{
		machine:         lifecycle.New(),
		checklist:       def,
		template:        template,
		records:         newRegistry(),
		history:         NewHistoryLog(deps.History, now),
		items:           deps.Items,
		location:        loc,
		defaultChannels: cloneTriggers(deps.DefaultChannels),
		bulkWorkers:     workers,
		now:             now,
		logger:          logger.With("component", "workflow"),
	}
	w.publisher = newPublisher(w, publisherDeps{
		repo:       deps.Schedules,
		dispatcher: deps.Dispatcher,
		alerts:     deps.Alerts,
		timers:     deps.Timers,
		now:        now,
		logger:     logger.With("component", "publisher"),
	})
	return w
}

// Checklist returns the active checklist definition.
func (w *Workflow) Checklist() domain.ChecklistDefinition {
	return w.checklist
}

// Publisher exposes the publication scheduler.
func (w *Workflow) Publisher() *Publisher {
	return w.publisher
}

// Register adds a new draft item.
func (w *Workflow) Register(ctx context.Context, item domain.ContentItem, in Intent) (Outcome, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return Outcome{}, fmt.Errorf("%w: content id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(item.Title) == "" {
		return Outcome{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	kind, ok := domain.ParseKind(string(item.Kind))
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown content kind %q", domain.ErrInvalidInput, item.Kind)
	}
	item.Kind = kind
	if item.Status != "" && item.Status != domain.StatusDraft {
		return Outcome{}, fmt.Errorf("%w: new items start as draft, got %s", domain.ErrInvalidInput, item.Status)
	}
	item.Status = domain.StatusDraft
	item.VerificationScore = min(max(item.VerificationScore, 0), 100)
	now := w.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	rec := &itemRecord{item: item}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !w.records.add(rec) {
		return Outcome{}, fmt.Errorf("%w: content item %q already exists", domain.ErrInvalidInput, item.ID)
	}

	entry, err := w.history.Record(ctx, domain.HistoryEntry{
		ContentID: item.ID,
		ActorID:   in.actor(),
		Action:    domain.ActionCreate,
		ToStatus:  domain.StatusDraft,
		Comment:   in.Comment,
	})
	if err != nil {
		w.records.remove(item.ID)
		return Outcome{}, err
	}
	w.persist(ctx, rec)
	return Outcome{Item: rec.item, Entry: entry}, nil
}

// Items lists every registered item ordered by id.
func (w *Workflow) Items() []domain.ContentItem {
	ids := w.records.ids()
	out := make([]domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		rec, err := w.records.get(id)
		if err != nil {
			continue
		}
		rec.mu.Lock()
		out = append(out, rec.item)
		rec.mu.Unlock()
	}
	return out
}

// Submit moves a draft into review.
func (w *Workflow) Submit(ctx context.Context, id string, in Intent) (Outcome, error) {
	return w.simple(ctx, id, lifecycle.TriggerSubmit, in)
}

// Resubmit sends a rejected item back into review.
func (w *Workflow) Resubmit(ctx context.Context, id string, in Intent) (Outcome, error) {
	return w.simple(ctx, id, lifecycle.TriggerResubmit, in)
}

// Archive retires a published item.
func (w *Workflow) Archive(ctx context.Context, id string, in Intent) (Outcome, error) {
	return w.simple(ctx, id, lifecycle.TriggerArchive, in)
}

// Reject closes review negatively, keeping the checklist that led to it.
func (w *Workflow) Reject(ctx context.Context, id string, in Intent) (Outcome, error) {
	return w.reviewDecision(ctx, id, lifecycle.TriggerReject, in, nil)
}

// RequestChanges returns the item to draft for rework.
func (w *Workflow) RequestChanges(ctx context.Context, id string, in Intent) (Outcome, error) {
	return w.reviewDecision(ctx, id, lifecycle.TriggerRequestChanges, in, nil)
}

// Approve accepts a pending item when no required checklist item is failing.
// A nil result uses the item's open review session.
func (w *Workflow) Approve(ctx context.Context, id string, in Intent, result domain.ChecklistResult) (Outcome, error) {
	return w.reviewDecision(ctx, id, lifecycle.TriggerApprove, in, result)
}

// Apply runs any lifecycle trigger with default arguments.
func (w *Workflow) Apply(ctx context.Context, id string, trigger lifecycle.Trigger, in Intent) (Outcome, error) {
	switch trigger {
	case lifecycle.TriggerApprove, lifecycle.TriggerReject, lifecycle.TriggerRequestChanges:
		return w.reviewDecision(ctx, id, trigger, in, nil)
	case lifecycle.TriggerPublish:
		res, err := w.Publish(ctx, id, in, nil)
		return res.Outcome, err
	default:
		return w.simple(ctx, id, trigger, in)
	}
}

func (w *Workflow) simple(ctx context.Context, id string, trigger lifecycle.Trigger, in Intent) (Outcome, error) {
	var out Outcome
	err := w.withItem(id, func(rec *itemRecord) error {
		var err error
		out, err = w.transition(ctx, rec, trigger, in, nil, lifecycle.StaticGate{}, nil)
		return err
	})
	return out, err
}

func (w *Workflow) reviewDecision(ctx context.Context, id string, trigger lifecycle.Trigger, in Intent, result domain.ChecklistResult) (Outcome, error) {
	var out Outcome
	err := w.withItem(id, func(rec *itemRecord) error {
		if result == nil {
			result = rec.review
		}
		canonical, err := checklist.Validate(result, w.checklist)
		if err != nil {
			return err
		}
		snapshot := checklist.Normalize(canonical, w.checklist)
		gate := lifecycle.StaticGate{Failing: checklist.FailingRequired(canonical, w.checklist)}
		var commit func(*domain.ContentItem)
		if trigger == lifecycle.TriggerApprove {
			score := checklist.Score(canonical, w.checklist)
			commit = func(item *domain.ContentItem) { item.VerificationScore = score }
		}
		out, err = w.transition(ctx, rec, trigger, in, snapshot, gate, commit)
		return err
	})
	return out, err
}

// transition evaluates trigger against the record and commits it. History is
// recorded first; the in-memory status and commit only apply once that succeeded.
func (w *Workflow) transition(ctx context.Context, rec *itemRecord, trigger lifecycle.Trigger, in Intent, snapshot domain.ChecklistResult, gate lifecycle.Gate, commit func(*domain.ContentItem)) (Outcome, error) {
	from := rec.item.Status
	next, err := w.machine.Next(from, trigger, gate)
	if err != nil {
		return Outcome{}, err
	}

	entry := domain.HistoryEntry{
		ContentID:  rec.item.ID,
		ActorID:    in.actor(),
		Action:     string(trigger),
		FromStatus: from,
		ToStatus:   next,
		Comment:    in.Comment,
	}
	if trigger.RecordsChecklist() {
		entry.ChecklistSnapshot = snapshot
	}
	entry, err = w.history.Record(ctx, entry)
	if err != nil {
		return Outcome{}, err
	}

	rec.item.Status = next
	rec.item.UpdatedAt = entry.Timestamp
	if commit != nil {
		commit(&rec.item)
	}
	w.enterStatus(rec, from, next)
	w.persist(ctx, rec)

	w.logger.Info("content transitioned",
		"content_id", rec.item.ID,
		"trigger", trigger,
		"from", from,
		"to", next,
		"actor", entry.ActorID,
	)
	return Outcome{Item: rec.item, Entry: entry}, nil
}

// enterStatus maintains the per-status side state of a record.
func (w *Workflow) enterStatus(rec *itemRecord, from, next domain.Status) {
	if from == domain.StatusPending && next != domain.StatusPending {
		rec.review = nil
		rec.reviewer = ""
	}
	switch next {
	case domain.StatusPending:
		if rec.steps == nil {
			rec.steps = steps.NewTracker(w.template, w.now)
		}
	case domain.StatusPublished, domain.StatusArchived:
		rec.steps = nil
	}
}

// outstanding lists required steps blocking publication. A record without
// steps has never been reviewed, so the whole required template is missing.
func (w *Workflow) outstanding(rec *itemRecord) []string {
	if rec.steps != nil {
		if rec.steps.AllRequiredCompleted() {
			return nil
		}
		return rec.steps.Outstanding()
	}
	var out []string
	for _, tpl := range w.template {
		if tpl.Required {
			out = append(out, tpl.ID)
		}
	}
	return out
}

// note appends a history entry that does not change the status.
func (w *Workflow) note(ctx context.Context, contentID, actor, action, comment string) (domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := w.withItem(contentID, func(rec *itemRecord) error {
		var err error
		entry, err = w.noteLocked(ctx, rec, actor, action, comment)
		return err
	})
	return entry, err
}

func (w *Workflow) noteLocked(ctx context.Context, rec *itemRecord, actor, action, comment string) (domain.HistoryEntry, error) {
	return w.history.Record(ctx, domain.HistoryEntry{
		ContentID:  rec.item.ID,
		ActorID:    actor,
		Action:     action,
		FromStatus: rec.item.Status,
		ToStatus:   rec.item.Status,
		Comment:    comment,
	})
}

// SetFeatured toggles the featured flag. It is independent of the status.
func (w *Workflow) SetFeatured(ctx context.Context, id string, in Intent, featured bool) (Outcome, error) {
	var out Outcome
	err := w.withItem(id, func(rec *itemRecord) error {
		if rec.item.Featured == featured {
			out = Outcome{Item: rec.item}
			return nil
		}
		action := domain.ActionUnfeature
		if featured {
			action = domain.ActionFeature
		}
		entry, err := w.noteLocked(ctx, rec, in.actor(), action, in.Comment)
		if err != nil {
			return err
		}
		rec.item.Featured = featured
		rec.item.UpdatedAt = entry.Timestamp
		w.persist(ctx, rec)
		out = Outcome{Item: rec.item, Entry: entry}
		return nil
	})
	return out, err
}

// History returns an item's audit trail in order.
func (w *Workflow) History(id string) ([]domain.HistoryEntry, error) {
	if _, err := w.records.get(id); err != nil {
		return nil, err
	}
	return w.history.Entries(id), nil
}

func (w *Workflow) withItem(id string, fn func(rec *itemRecord) error) error {
	rec, err := w.records.get(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return fn(rec)
}

// persist writes the item snapshot. The history entry is already durable, so
// a failure here is repaired from history on the next restore.
func (w *Workflow) persist(ctx context.Context, rec *itemRecord) {
	if w.items == nil {
		return
	}
	if err := w.items.SaveItem(ctx, rec.snapshot()); err != nil {
		w.logger.Warn("save item failed", "content_id", rec.item.ID, "error", err)
	}
}

// Restore reloads items, history and schedules from the repositories and
// re-arms every schedule that still has pending triggers.
func (w *Workflow) Restore(ctx context.Context) error {
	if w.items == nil {
		return nil
	}
	snapshots, err := w.items.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	for _, snap := range snapshots {
		rec := &itemRecord{item: snap.Item}
		if len(snap.Steps) > 0 {
			rec.steps = steps.Restore(snap.Steps, w.now)
		}
		if hr := w.history.repo; hr != nil {
			entries, err := hr.LoadHistory(ctx, snap.Item.ID)
			if err != nil {
				return fmt.Errorf("load history %s: %w", snap.Item.ID, err)
			}
			w.history.seed(snap.Item.ID, entries)
			if n := len(entries); n > 0 && entries[n-1].ToStatus != rec.item.Status {
				w.logger.Warn("item status behind history, reconciling",
					"content_id", snap.Item.ID,
					"stored", rec.item.Status,
					"history", entries[n-1].ToStatus,
				)
				rec.item.Status = entries[n-1].ToStatus
				w.enterStatus(rec, "", rec.item.Status)
			}
		}
		if !w.records.add(rec) {
			w.logger.Warn("duplicate item on restore", "content_id", snap.Item.ID)
		}
	}
	w.logger.Info("items restored", "count", len(snapshots))
	return w.publisher.restore(ctx)
}

// Close disarms timers and waits for in-flight dispatches.
func (w *Workflow) Close(ctx context.Context) error {
	return w.publisher.Stop(ctx)
}

func cloneTriggers(in []domain.ChannelTrigger) []domain.ChannelTrigger {
	if in == nil {
		return nil
	}
	out := make([]domain.ChannelTrigger, len(in))
	for i, t := range in {
		t.Payload = t.Payload.Clone()
		t.FiredAt = nil
		out[i] = t
	}
	return out
}
