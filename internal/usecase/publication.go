package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/lifecycle"
	"ListingFlow/internal/ports"
)

// ScheduleRequest describes a publish intent in the author's wall clock.
type ScheduleRequest struct {
	Date        string                  `json:"date"`
	Time        string                  `json:"time"`
	Timezone    string                  `json:"timezone"`
	AutoPublish *bool                   `json:"auto_publish,omitempty"`
	Channels    []domain.ChannelTrigger `json:"channels,omitempty"`
}

// TriggerView is one channel trigger with its resolved instant.
type TriggerView struct {
	Channel domain.Channel `json:"channel"`
	At      time.Time      `json:"at"`
	Armed   bool           `json:"armed"`
	FiredAt *time.Time     `json:"fired_at,omitempty"`
}

// ScheduleView is a schedule plus the instants its triggers fire at.
type ScheduleView struct {
	Schedule domain.PublicationSchedule `json:"schedule"`
	Triggers []TriggerView              `json:"triggers"`
}

// PublishOutcome extends Outcome with the channel fan-out of a manual publish.
type PublishOutcome struct {
	Outcome
	Dispatched []domain.Channel `json:"dispatched,omitempty"`
	Schedule   *ScheduleView    `json:"schedule,omitempty"`
}

// Publish makes an approved item live and fans out to its channels. Channels
// without offset dispatch now; the rest become a schedule based at now.
// A nil channel list uses the configured defaults.
func (w *Workflow) Publish(ctx context.Context, id string, in Intent, channels []domain.ChannelTrigger) (PublishOutcome, error) {
	if channels == nil {
		channels = w.defaultChannels
	}
	channels, err := normalizeTriggers(channels)
	if err != nil {
		return PublishOutcome{}, err
	}

	var out PublishOutcome
	err = w.withItem(id, func(rec *itemRecord) error {
		gate := lifecycle.StaticGate{Outstanding: w.outstanding(rec)}
		o, err := w.transition(ctx, rec, lifecycle.TriggerPublish, in, nil, gate, nil)
		if err != nil {
			return err
		}
		out.Outcome = o
		w.publisher.supersede(ctx, id)
		return nil
	})
	if err != nil {
		return PublishOutcome{}, err
	}

	dispatched, sched, err := w.publisher.publishImmediately(ctx, out.Item, in.actor(), channels)
	if err != nil {
		w.logger.Warn("channel fan-out incomplete", "content_id", id, "error", err)
	}
	out.Dispatched = dispatched
	out.Schedule = sched
	return out, nil
}

// Schedule arms a publication schedule for an approved item whose required
// steps are complete.
func (w *Workflow) Schedule(ctx context.Context, id string, in Intent, req ScheduleRequest) (ScheduleView, error) {
	publishAt, err := domain.ResolveInstant(req.Date, req.Time, req.Timezone, w.location)
	if err != nil {
		return ScheduleView{}, err
	}
	channels := req.Channels
	if len(channels) == 0 {
		channels = w.defaultChannels
	}
	channels, err = normalizeTriggers(channels)
	if err != nil {
		return ScheduleView{}, err
	}
	autoPublish := true
	if req.AutoPublish != nil {
		autoPublish = *req.AutoPublish
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = w.location.String()
	}

	sched := domain.PublicationSchedule{
		ID:          uuid.NewString(),
		ContentID:   id,
		PublishAt:   publishAt.UTC(),
		Timezone:    tz,
		AutoPublish: autoPublish,
		Channels:    channels,
		CreatedBy:   in.actor(),
		CreatedAt:   w.now().UTC(),
	}
	if !sched.Pending() {
		return ScheduleView{}, fmt.Errorf("%w: schedule arms no channel", domain.ErrInvalidInput)
	}

	var view ScheduleView
	err = w.withItem(id, func(rec *itemRecord) error {
		if rec.item.Status != domain.StatusApproved {
			return fmt.Errorf("%w: only approved items can be scheduled, item is %s", domain.ErrGuardViolation, rec.item.Status)
		}
		gate := lifecycle.StaticGate{Outstanding: w.outstanding(rec)}
		if _, err := w.machine.Next(rec.item.Status, lifecycle.TriggerPublish, gate); err != nil {
			return err
		}
		if sched.HasContentTrigger() {
			if existing := w.publisher.contentScheduleFor(id); existing != "" {
				return fmt.Errorf("%w: item already has active schedule %s", domain.ErrGuardViolation, existing)
			}
		}
		if err := w.publisher.save(ctx, sched); err != nil {
			return err
		}
		if _, err := w.noteLocked(ctx, rec, in.actor(), domain.ActionSchedule, describeSchedule(sched)); err != nil {
			w.publisher.forget(ctx, sched.ID)
			return err
		}
		view = w.publisher.arm(sched)
		return nil
	})
	if err != nil {
		return ScheduleView{}, err
	}
	w.logger.Info("publication scheduled",
		"content_id", id,
		"schedule_id", sched.ID,
		"publish_at", sched.PublishAt,
		"auto_publish", sched.AutoPublish,
	)
	return view, nil
}

// CancelSchedule disarms every pending trigger of a schedule. Triggers that
// already fired stay fired.
func (w *Workflow) CancelSchedule(ctx context.Context, scheduleID string, in Intent) (ScheduleView, error) {
	sched, err := w.publisher.cancel(ctx, scheduleID)
	if err != nil {
		return ScheduleView{}, err
	}
	if _, err := w.note(ctx, sched.ContentID, in.actor(), domain.ActionScheduleCancelled, scheduleID); err != nil {
		w.logger.Warn("record cancellation failed", "schedule_id", scheduleID, "error", err)
	}
	return viewOf(sched), nil
}

// ScheduleByID returns an active schedule.
func (w *Workflow) ScheduleByID(scheduleID string) (ScheduleView, error) {
	return w.publisher.View(scheduleID)
}

// publishScheduled runs the content trigger of a schedule. The publish guard
// is evaluated again at fire time; a refusal is recorded as publish_failed.
func (w *Workflow) publishScheduled(ctx context.Context, sched domain.PublicationSchedule) {
	in := Intent{Actor: schedulerActor, Comment: "schedule " + sched.ID}
	err := w.withItem(sched.ContentID, func(rec *itemRecord) error {
		if rec.item.Status == domain.StatusPublished {
			w.logger.Info("content already published, skipping scheduled publish",
				"content_id", sched.ContentID,
				"schedule_id", sched.ID,
			)
			return nil
		}
		gate := lifecycle.StaticGate{Outstanding: w.outstanding(rec)}
		_, err := w.transition(ctx, rec, lifecycle.TriggerPublish, in, nil, gate, nil)
		if err == nil {
			return nil
		}
		if _, herr := w.noteLocked(ctx, rec, schedulerActor, domain.ActionPublishFailed, err.Error()); herr != nil {
			return errors.Join(err, herr)
		}
		return err
	})
	if err != nil {
		w.logger.Warn("scheduled publish failed",
			"content_id", sched.ContentID,
			"schedule_id", sched.ID,
			"error", err,
		)
	}
}

// itemSnapshot copies the current item for payload composition.
func (w *Workflow) itemSnapshot(id string) (domain.ContentItem, error) {
	var item domain.ContentItem
	err := w.withItem(id, func(rec *itemRecord) error {
		item = rec.item
		return nil
	})
	return item, err
}

type publisherDeps struct {
	repo       ports.ScheduleRepository
	dispatcher ports.Dispatcher
	alerts     ports.AlertNotifier
	timers     ports.Timers
	now        func() time.Time
	logger     *slog.Logger
}

// Publisher arms, fires and cancels publication schedules. Timer callbacks
// only claim a trigger; the work runs on a separate tracked goroutine.
type Publisher struct {
	workflow   *Workflow
	repo       ports.ScheduleRepository
	dispatcher ports.Dispatcher
	alerts     ports.AlertNotifier
	timers     ports.Timers
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	active   map[string]*armedSchedule
	stopped  bool
	inflight sync.WaitGroup
}

type armedSchedule struct {
	schedule domain.PublicationSchedule
	handles  map[int]ports.TimerHandle
}

type stdTimers struct{}

func (stdTimers) AfterFunc(d time.Duration, fn func()) ports.TimerHandle {
	return time.AfterFunc(d, fn)
}

func newPublisher(w *Workflow, deps publisherDeps) *Publisher {
	timers := deps.timers
	if timers == nil {
		timers = stdTimers{}
	}
	return &Publisher{
		workflow:   w,
		repo:       deps.repo,
		dispatcher: deps.dispatcher,
		alerts:     deps.alerts,
		timers:     timers,
		now:        deps.now,
		logger:     deps.logger,
		active:     map[string]*armedSchedule{},
	}
}

// View returns an active schedule.
func (p *Publisher) View(scheduleID string) (ScheduleView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	as, ok := p.active[scheduleID]
	if !ok {
		return ScheduleView{}, fmt.Errorf("%w: schedule %q", domain.ErrNotFound, scheduleID)
	}
	return viewOf(as.schedule), nil
}

// ForContent lists the active schedules of an item by publish time.
func (p *Publisher) ForContent(contentID string) []ScheduleView {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ScheduleView
	for _, as := range p.active {
		if as.schedule.ContentID == contentID {
			out = append(out, viewOf(as.schedule))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Schedule.PublishAt.Before(out[j].Schedule.PublishAt)
	})
	return out
}

// Stop disarms all timers and waits for in-flight work. Schedules stay
// persisted and are re-armed by the next restore.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	for id, as := range p.active {
		for _, h := range as.handles {
			h.Stop()
		}
		delete(p.active, id)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) contentScheduleFor(contentID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, as := range p.active {
		if as.schedule.ContentID == contentID && as.schedule.HasContentTrigger() {
			return id
		}
	}
	return ""
}

func (p *Publisher) save(ctx context.Context, sched domain.PublicationSchedule) error {
	if p.repo == nil {
		return nil
	}
	if err := p.repo.SaveSchedule(ctx, sched); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func (p *Publisher) forget(ctx context.Context, scheduleID string) {
	if p.repo == nil {
		return
	}
	if err := p.repo.DeleteSchedule(ctx, scheduleID); err != nil {
		p.logger.Warn("delete schedule failed", "schedule_id", scheduleID, "error", err)
	}
}

// arm registers sched and starts one timer per armed, unfired trigger.
// Triggers already due fire immediately.
func (p *Publisher) arm(sched domain.PublicationSchedule) ScheduleView {
	sched = sched.Clone()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return viewOf(sched)
	}
	as := &armedSchedule{schedule: sched, handles: map[int]ports.TimerHandle{}}
	p.active[sched.ID] = as
	now := p.now()
	for i := range sched.Channels {
		if !sched.Armed(i) || sched.Channels[i].FiredAt != nil {
			continue
		}
		delay := sched.TriggerAt(i).Sub(now)
		if delay < 0 {
			delay = 0
		}
		idx := i
		as.handles[i] = p.timers.AfterFunc(delay, func() { p.fire(sched.ID, idx) })
	}
	return viewOf(sched)
}

// fire claims trigger idx of a schedule. A cancelled schedule or an already
// claimed trigger makes it a no-op.
func (p *Publisher) fire(scheduleID string, idx int) {
	p.mu.Lock()
	as, ok := p.active[scheduleID]
	if !ok || p.stopped || as.schedule.Channels[idx].FiredAt != nil {
		p.mu.Unlock()
		return
	}
	firedAt := p.now().UTC()
	as.schedule.Channels[idx].FiredAt = &firedAt
	delete(as.handles, idx)
	sched := as.schedule.Clone()
	done := !sched.Pending()
	if done {
		delete(p.active, scheduleID)
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()
		ctx := context.Background()
		p.markFired(ctx, sched.ID, idx, firedAt, done)

		trigger := sched.Channels[idx]
		if trigger.Channel.IsContent() {
			p.workflow.publishScheduled(ctx, sched)
			return
		}
		item, err := p.workflow.itemSnapshot(sched.ContentID)
		if err != nil {
			p.logger.Warn("dispatch for unknown item", "schedule_id", sched.ID, "content_id", sched.ContentID)
			return
		}
		p.deliver(ctx, domain.DispatchEvent{
			Channel:    trigger.Channel,
			ContentID:  sched.ContentID,
			ScheduleID: sched.ID,
			Payload:    composePayload(item, trigger.Payload),
			FiredAt:    firedAt,
		})
	}()
}

func (p *Publisher) markFired(ctx context.Context, scheduleID string, idx int, at time.Time, done bool) {
	if p.repo == nil {
		return
	}
	if done {
		p.forget(ctx, scheduleID)
		return
	}
	if err := p.repo.MarkTriggerFired(ctx, scheduleID, idx, at); err != nil {
		p.logger.Warn("mark trigger fired failed", "schedule_id", scheduleID, "index", idx, "error", err)
	}
}

// cancel removes a schedule atomically with respect to fire.
func (p *Publisher) cancel(ctx context.Context, scheduleID string) (domain.PublicationSchedule, error) {
	p.mu.Lock()
	as, ok := p.active[scheduleID]
	if !ok {
		p.mu.Unlock()
		return domain.PublicationSchedule{}, fmt.Errorf("%w: schedule %q", domain.ErrNotFound, scheduleID)
	}
	for _, h := range as.handles {
		h.Stop()
	}
	delete(p.active, scheduleID)
	sched := as.schedule.Clone()
	p.mu.Unlock()

	p.forget(ctx, scheduleID)
	p.logger.Info("schedule cancelled", "schedule_id", scheduleID, "content_id", sched.ContentID)
	return sched, nil
}

// supersede consumes the pending content trigger of an item's schedule after
// a manual publish, so it never fires against a published item.
func (p *Publisher) supersede(ctx context.Context, contentID string) {
	type claimed struct {
		id   string
		idx  int
		done bool
	}
	var hits []claimed
	firedAt := p.now().UTC()

	p.mu.Lock()
	for id, as := range p.active {
		if as.schedule.ContentID != contentID {
			continue
		}
		for i, t := range as.schedule.Channels {
			if !t.Channel.IsContent() || !as.schedule.Armed(i) || t.FiredAt != nil {
				continue
			}
			at := firedAt
			as.schedule.Channels[i].FiredAt = &at
			if h, ok := as.handles[i]; ok {
				h.Stop()
				delete(as.handles, i)
			}
			done := !as.schedule.Pending()
			if done {
				delete(p.active, id)
			}
			hits = append(hits, claimed{id: id, idx: i, done: done})
		}
	}
	p.mu.Unlock()

	for _, h := range hits {
		p.markFired(ctx, h.id, h.idx, firedAt, h.done)
		p.logger.Info("content trigger superseded by manual publish", "schedule_id", h.id, "content_id", contentID)
	}
}

// publishImmediately dispatches zero-offset channels now and schedules the
// delayed ones relative to now.
func (p *Publisher) publishImmediately(ctx context.Context, item domain.ContentItem, actor string, channels []domain.ChannelTrigger) ([]domain.Channel, *ScheduleView, error) {
	now := p.now().UTC()
	var (
		dispatched []domain.Channel
		delayed    []domain.ChannelTrigger
	)
	for _, t := range channels {
		if !t.Enabled || t.Channel.IsContent() {
			continue
		}
		if t.Offset > 0 {
			delayed = append(delayed, t)
			continue
		}
		event := domain.DispatchEvent{
			Channel:   t.Channel,
			ContentID: item.ID,
			Payload:   composePayload(item, t.Payload),
			FiredAt:   now,
		}
		if p.goDeliver(event) {
			dispatched = append(dispatched, t.Channel)
		}
	}
	if len(delayed) == 0 {
		return dispatched, nil, nil
	}

	sched := domain.PublicationSchedule{
		ID:        uuid.NewString(),
		ContentID: item.ID,
		PublishAt: now,
		Timezone:  "UTC",
		Channels:  cloneTriggers(delayed),
		CreatedBy: actor,
		CreatedAt: now,
	}
	if err := p.save(ctx, sched); err != nil {
		return dispatched, nil, err
	}
	if _, err := p.workflow.note(ctx, item.ID, actor, domain.ActionSchedule, describeSchedule(sched)); err != nil {
		p.forget(ctx, sched.ID)
		return dispatched, nil, err
	}
	view := p.arm(sched)
	return dispatched, &view, nil
}

func (p *Publisher) goDeliver(event domain.DispatchEvent) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Warn("publisher stopped, dispatch skipped", "content_id", event.ContentID, "channel", event.Channel)
		return false
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()
		p.deliver(context.Background(), event)
	}()
	return true
}

// deliver sends one event and records the outcome. Failures are not retried.
func (p *Publisher) deliver(ctx context.Context, event domain.DispatchEvent) {
	err := p.send(ctx, event)

	action := domain.ActionDispatchPrefix + string(event.Channel)
	comment := event.ScheduleID
	if err != nil {
		action = domain.ActionDispatchFailed + string(event.Channel)
		comment = err.Error()
	}
	if _, herr := p.workflow.note(ctx, event.ContentID, schedulerActor, action, comment); herr != nil {
		p.logger.Warn("record dispatch outcome failed", "content_id", event.ContentID, "error", herr)
	}
	if err == nil {
		p.logger.Info("dispatched", "content_id", event.ContentID, "channel", event.Channel)
		return
	}

	p.logger.Error("dispatch failed", "content_id", event.ContentID, "channel", event.Channel, "error", err)
	if p.alerts == nil {
		return
	}
	if aerr := p.alerts.NotifyDispatchFailure(ctx, event, err); aerr != nil {
		p.logger.Warn("alert delivery failed", "content_id", event.ContentID, "error", aerr)
	}
}

func (p *Publisher) send(ctx context.Context, event domain.DispatchEvent) error {
	if p.dispatcher == nil {
		return fmt.Errorf("%w: no dispatcher configured", domain.ErrDispatchFailure)
	}
	err := p.dispatcher.Dispatch(ctx, event)
	if err == nil || errors.Is(err, domain.ErrDispatchFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrDispatchFailure, err)
}

// restore re-arms persisted schedules. Fully fired ones are dropped.
func (p *Publisher) restore(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}
	schedules, err := p.repo.LoadSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	armed := 0
	for _, sched := range schedules {
		if !sched.Pending() {
			p.forget(ctx, sched.ID)
			continue
		}
		p.arm(sched)
		armed++
	}
	p.logger.Info("schedules restored", "armed", armed, "loaded", len(schedules))
	return nil
}

func viewOf(sched domain.PublicationSchedule) ScheduleView {
	view := ScheduleView{Schedule: sched.Clone(), Triggers: make([]TriggerView, len(sched.Channels))}
	for i, t := range view.Schedule.Channels {
		view.Triggers[i] = TriggerView{
			Channel: t.Channel,
			At:      sched.TriggerAt(i),
			Armed:   sched.Armed(i),
			FiredAt: t.FiredAt,
		}
	}
	return view
}

// composePayload merges item metadata under the trigger's own payload.
func composePayload(item domain.ContentItem, extra domain.Payload) domain.Payload {
	out := domain.Payload{
		"content_id": item.ID,
		"kind":       string(item.Kind),
		"title":      item.Title,
		"url":        item.URL,
		"summary":    item.Summary,
		"featured":   strconv.FormatBool(item.Featured),
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func describeSchedule(sched domain.PublicationSchedule) string {
	parts := make([]string, 0, len(sched.Channels))
	for i, t := range sched.Channels {
		if !sched.Armed(i) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s@%s", t.Channel, sched.TriggerAt(i).Format(time.RFC3339)))
	}
	return fmt.Sprintf("%s: %s", sched.ID, strings.Join(parts, ", "))
}

// normalizeTriggers returns a canonical copy of channels, rejecting unknown
// and duplicate channel ids.
func normalizeTriggers(channels []domain.ChannelTrigger) ([]domain.ChannelTrigger, error) {
	out := cloneTriggers(channels)
	seen := make(map[domain.Channel]bool, len(out))
	for i, t := range out {
		ch, err := domain.ParseChannel(string(t.Channel))
		if err != nil {
			return nil, err
		}
		if seen[ch] {
			return nil, fmt.Errorf("%w: duplicate channel %s", domain.ErrInvalidInput, ch)
		}
		seen[ch] = true
		out[i].Channel = ch
	}
	return out, nil
}
