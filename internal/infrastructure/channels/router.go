package channels

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ListingFlow/internal/dispatch"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/infrastructure/render"
	"ListingFlow/internal/logging"
	"ListingFlow/internal/ports"
)

// PreviewSource looks up link card metadata for a listing page.
type PreviewSource interface {
	Fetch(ctx context.Context, pageURL string) (render.Preview, error)
}

// RouterDeps bundles the router collaborators.
type RouterDeps struct {
	Registry      *dispatch.Registry
	Previews      PreviewSource
	Timeout       time.Duration
	ExcerptLength int
	Logger        *slog.Logger
}

// Router resolves the sender of each fired trigger and delivers the rendered message.
type Router struct {
	registry      *dispatch.Registry
	previews      PreviewSource
	timeout       time.Duration
	excerptLength int
	logger        *slog.Logger
}

var _ ports.Dispatcher = (*Router)(nil)

// NewRouter constructs the outbound dispatcher.
func NewRouter(deps RouterDeps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	registry := deps.Registry
	if registry == nil {
		registry = dispatch.NewRegistry()
	}
	excerpt := deps.ExcerptLength
	if excerpt <= 0 {
		excerpt = render.DefaultExcerptLength
	}
	return &Router{
		registry:      registry,
		previews:      deps.Previews,
		timeout:       deps.Timeout,
		excerptLength: excerpt,
		logger:        logger,
	}
}

// Dispatch renders the event and hands it to the channel's sender.
func (r *Router) Dispatch(ctx context.Context, event domain.DispatchEvent) error {
	if event.Channel.IsContent() {
		return fmt.Errorf("%w: content channel is not dispatched", domain.ErrInvalidInput)
	}

	sender, err := r.registry.Resolve(event.Channel)
	if err != nil {
		return err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg := render.Compose(event, r.excerptLength)
	r.enrich(ctx, &msg)

	start := time.Now()
	if err := sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDispatchFailure, sender.Name(), err)
	}

	r.logger.Info("message dispatched",
		"channel", event.Channel,
		"content_id", event.ContentID,
		"sender", sender.Name(),
		"duration", time.Since(start),
	)
	return nil
}

// enrich fills a missing image or text from the listing page preview.
func (r *Router) enrich(ctx context.Context, msg *dispatch.Message) {
	if r.previews == nil || msg.URL == "" || (msg.ImageURL != "" && msg.Text != "") {
		return
	}
	preview, err := r.previews.Fetch(ctx, msg.URL)
	if err != nil {
		r.logger.Warn("preview fetch failed", "url", msg.URL, "error", err)
		return
	}
	if msg.ImageURL == "" {
		msg.ImageURL = preview.Image
	}
	if msg.Text == "" {
		msg.Text = render.Truncate(preview.Description, r.excerptLength)
	}
	if msg.Title == "" {
		msg.Title = preview.Title
	}
}

// LogAlerts is the alert notifier used when no alert chat is configured.
type LogAlerts struct {
	logger *slog.Logger
}

var _ ports.AlertNotifier = (*LogAlerts)(nil)

// NewLogAlerts writes dispatch failures to the log only.
func NewLogAlerts(logger *slog.Logger) *LogAlerts {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogAlerts{logger: logger}
}

// NotifyDispatchFailure logs the failure.
func (a *LogAlerts) NotifyDispatchFailure(_ context.Context, event domain.DispatchEvent, cause error) error {
	a.logger.Error("dispatch failed",
		"channel", event.Channel,
		"content_id", event.ContentID,
		"schedule_id", event.ScheduleID,
		"error", cause,
	)
	return nil
}
