package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"ListingFlow/internal/api"
	"ListingFlow/internal/checklist"
	"ListingFlow/internal/config"
	"ListingFlow/internal/dispatch"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/infrastructure/channels"
	"ListingFlow/internal/infrastructure/email"
	"ListingFlow/internal/infrastructure/render"
	"ListingFlow/internal/infrastructure/scheduler"
	"ListingFlow/internal/infrastructure/storage"
	"ListingFlow/internal/infrastructure/telegram"
	"ListingFlow/internal/infrastructure/webhook"
	"ListingFlow/internal/logging"
	"ListingFlow/internal/ports"
	"ListingFlow/internal/steps"
	"ListingFlow/internal/usecase"
	"ListingFlow/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	repo     *storage.SQLRepository
	timers   *scheduler.TimerScheduler
	workflow *usecase.Workflow
	server   *http.Server
	lock     *flock.Flock
}

// New builds the runnable application: storage, channels, workflow and HTTP API.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	def, err := checklist.Load(cfg.Checklist.Path)
	if err != nil {
		return nil, err
	}
	if err := steps.ValidateTemplate(cfg.Workflow.Steps); err != nil {
		return nil, fmt.Errorf("workflow steps: %w", err)
	}

	repo, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher, alerts := buildChannels(cfg.Dispatch, baseLogger)
	timers := scheduler.NewTimerScheduler()

	deps := usecase.WorkflowDeps{
		Checklist:       def,
		Steps:           cfg.Workflow.Steps,
		Dispatcher:      dispatcher,
		Alerts:          alerts,
		Timers:          timers,
		Location:        cfg.Scheduler.Location(),
		DefaultChannels: cfg.DefaultChannels(),
		BulkWorkers:     cfg.Workflow.BulkWorkers,
		Logger:          baseLogger,
	}
	if repo != nil {
		deps.Items, deps.History, deps.Schedules = repo, repo, repo
	} else {
		baseLogger.Warn("no database configured, workflow state is kept in memory only")
	}
	workflow := usecase.NewWorkflow(deps)

	handler := api.NewHandler(workflow, baseLogger.With("component", "api"))
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler),
		ErrorLog:          logger.New("http", baseLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	application := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		repo:     repo,
		timers:   timers,
		workflow: workflow,
		server:   server,
	}
	if path := cfg.LockPath(); path != "" {
		application.lock = flock.New(path)
	}
	return application, nil
}

// OpenStorage opens the configured database, or returns nil when no DSN is set.
func OpenStorage(ctx context.Context, cfg config.Config) (*storage.SQLRepository, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return repo, nil
}

func buildChannels(cfg config.DispatchConfig, base *slog.Logger) (ports.Dispatcher, ports.AlertNotifier) {
	registry := dispatch.NewRegistry()
	var alerts ports.AlertNotifier = channels.NewLogAlerts(base.With("component", "alerts"))

	if cfg.Telegram.BotToken != "" {
		client := telegram.NewClient(cfg.Telegram)
		if cfg.Telegram.Enabled() {
			registry.Register(domain.SocialChannel("telegram"), telegram.NewSender(client, cfg.Telegram.ChatID))
		}
		if cfg.Telegram.AlertChatID != "" {
			alerts = telegram.NewAlertNotifier(client, cfg.Telegram.AlertChatID)
		}
	}
	if cfg.Email.Enabled() {
		registry.Register(domain.ChannelEmail, email.NewClient(cfg.Email))
	}
	if len(cfg.Webhooks) > 0 {
		registry.RegisterSocial(webhook.NewSender(cfg.Webhooks))
	}

	var previews channels.PreviewSource
	if cfg.FetchPreviews {
		previews = render.NewPreviewFetcher(cfg.Timeout)
	}

	base.Info("outbound channels configured", "channels", registry.Channels(), "social_webhooks", len(cfg.Webhooks))
	return channels.NewRouter(channels.RouterDeps{
		Registry:      registry,
		Previews:      previews,
		Timeout:       cfg.Timeout,
		ExcerptLength: cfg.ExcerptLength,
		Logger:        base.With("component", "dispatch"),
	}), alerts
}

// Workflow exposes the orchestrator, mainly for tests and CLI commands.
func (a *Application) Workflow() *usecase.Workflow {
	return a.workflow
}

// Run restores persisted state, serves HTTP until ctx is cancelled and then
// shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if a.lock != nil {
		ok, err := a.lock.TryLock()
		if err != nil {
			a.close(context.Background())
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			a.close(context.Background())
			return fmt.Errorf("another listingflow instance holds %s", a.lock.Path())
		}
	}

	if err := a.workflow.Restore(ctx); err != nil {
		a.close(context.Background())
		return fmt.Errorf("restore state: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	a.close(shutdownCtx)
	return runErr
}

func (a *Application) close(ctx context.Context) {
	if err := a.workflow.Close(ctx); err != nil {
		a.logger.Warn("workflow close", "error", err)
	}
	if err := a.timers.Stop(ctx); err != nil {
		a.logger.Warn("timer shutdown", "error", err)
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("storage close", "error", err)
	}
	if a.lock != nil && a.lock.Locked() {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("failed to release lock", "error", err)
		}
	}
	a.logger.Info("application stopped")
}
