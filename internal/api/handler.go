package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/lifecycle"
	"ListingFlow/internal/logging"
	"ListingFlow/internal/steps"
	"ListingFlow/internal/usecase"
)

// actorHeader names the acting user when the body does not.
const actorHeader = "X-Actor"

// Handler exposes the workflow engine over HTTP.
type Handler struct {
	workflow *usecase.Workflow
	logger   *slog.Logger
}

// NewHandler binds the workflow to HTTP handlers.
func NewHandler(workflow *usecase.Workflow, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{workflow: workflow, logger: logger}
}

// NewRouter builds a gin engine with every route mounted.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)
	h.Register(r)
	return r
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.GET("/checklist", h.GetChecklist)
	api.POST("/bulk", h.Bulk)

	items := api.Group("/items")
	items.GET("", h.ListItems)
	items.POST("", h.RegisterItem)
	items.GET("/:id", h.GetItem)
	items.GET("/:id/history", h.GetHistory)
	items.POST("/:id/submit", h.transition(lifecycle.TriggerSubmit))
	items.POST("/:id/reject", h.transition(lifecycle.TriggerReject))
	items.POST("/:id/request-changes", h.transition(lifecycle.TriggerRequestChanges))
	items.POST("/:id/archive", h.transition(lifecycle.TriggerArchive))
	items.POST("/:id/resubmit", h.transition(lifecycle.TriggerResubmit))
	items.POST("/:id/approve", h.Approve)
	items.POST("/:id/publish", h.Publish)
	items.POST("/:id/featured", h.SetFeatured)
	items.POST("/:id/review", h.OpenReview)
	items.GET("/:id/review", h.GetReview)
	items.PUT("/:id/review/:itemId", h.MarkChecklist)
	items.POST("/:id/steps/:step/:op", h.StepAction)
	items.POST("/:id/schedules", h.Schedule)

	schedules := api.Group("/schedules")
	schedules.GET("/:id", h.GetSchedule)
	schedules.DELETE("/:id", h.CancelSchedule)
}

func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

type intentRequest struct {
	Actor   string `json:"actor"`
	Comment string `json:"comment"`
}

func (r intentRequest) intent(c *gin.Context) usecase.Intent {
	actor := r.Actor
	if actor == "" {
		actor = c.GetHeader(actorHeader)
	}
	return usecase.Intent{Actor: actor, Comment: r.Comment}
}

// bind decodes an optional JSON body; an empty body leaves v untouched.
func bind(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

type channelRequest struct {
	Channel string            `json:"channel"`
	Enabled *bool             `json:"enabled"`
	Offset  string            `json:"offset"`
	Payload map[string]string `json:"payload"`
}

func toTriggers(in []channelRequest) ([]domain.ChannelTrigger, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]domain.ChannelTrigger, 0, len(in))
	for _, ch := range in {
		channel, err := domain.ParseChannel(ch.Channel)
		if err != nil {
			return nil, err
		}
		var offset time.Duration
		if s := strings.TrimSpace(ch.Offset); s != "" {
			if offset, err = time.ParseDuration(s); err != nil {
				return nil, fmt.Errorf("%w: offset %q", domain.ErrInvalidInput, ch.Offset)
			}
		}
		enabled := true
		if ch.Enabled != nil {
			enabled = *ch.Enabled
		}
		out = append(out, domain.ChannelTrigger{
			Channel: channel,
			Enabled: enabled,
			Offset:  offset,
			Payload: domain.Payload(ch.Payload).Clone(),
		})
	}
	return out, nil
}

// GetChecklist returns the active checklist definition.
func (h *Handler) GetChecklist(c *gin.Context) {
	c.JSON(http.StatusOK, h.workflow.Checklist())
}

// ListItems returns every registered item.
func (h *Handler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.workflow.Items())
}

type registerRequest struct {
	intentRequest
	ID                string `json:"id"`
	Kind              string `json:"kind"`
	Title             string `json:"title"`
	Summary           string `json:"summary"`
	URL               string `json:"url"`
	Featured          bool   `json:"featured"`
	VerificationScore int    `json:"verification_score"`
}

// RegisterItem accepts a new draft from the authoring side.
func (h *Handler) RegisterItem(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	kind, ok := domain.ParseKind(req.Kind)
	if !ok {
		h.fail(c, fmt.Errorf("%w: kind %q", domain.ErrInvalidInput, req.Kind))
		return
	}
	out, err := h.workflow.Register(c.Request.Context(), domain.ContentItem{
		ID:                req.ID,
		Kind:              kind,
		Title:             req.Title,
		Summary:           req.Summary,
		URL:               req.URL,
		Status:            domain.StatusDraft,
		Featured:          req.Featured,
		VerificationScore: req.VerificationScore,
	}, req.intent(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GetItem returns the item view.
func (h *Handler) GetItem(c *gin.Context) {
	view, err := h.workflow.View(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetHistory returns the audit trail of an item.
func (h *Handler) GetHistory(c *gin.Context) {
	entries, err := h.workflow.History(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) transition(trigger lifecycle.Trigger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req intentRequest
		if err := bind(c, &req); err != nil {
			h.fail(c, err)
			return
		}
		out, err := h.workflow.Apply(c.Request.Context(), c.Param("id"), trigger, req.intent(c))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type approveRequest struct {
	intentRequest
	Result domain.ChecklistResult `json:"result"`
}

// Approve accepts an explicit checklist result or falls back to the open review.
func (h *Handler) Approve(c *gin.Context) {
	var req approveRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.workflow.Approve(c.Request.Context(), c.Param("id"), req.intent(c), req.Result)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type publishRequest struct {
	intentRequest
	Channels []channelRequest `json:"channels"`
}

// Publish makes an item live now and fans out to channels.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	channels, err := toTriggers(req.Channels)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.workflow.Publish(c.Request.Context(), c.Param("id"), req.intent(c), channels)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type featuredRequest struct {
	intentRequest
	Featured *bool `json:"featured"`
}

// SetFeatured toggles the featured flag.
func (h *Handler) SetFeatured(c *gin.Context) {
	var req featuredRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Featured == nil {
		h.fail(c, fmt.Errorf("%w: featured is required", domain.ErrInvalidInput))
		return
	}
	out, err := h.workflow.SetFeatured(c.Request.Context(), c.Param("id"), req.intent(c), *req.Featured)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// OpenReview starts a review session.
func (h *Handler) OpenReview(c *gin.Context) {
	var req intentRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.workflow.OpenReview(c.Request.Context(), c.Param("id"), req.intent(c).Actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetReview returns the live evaluation of the review session.
func (h *Handler) GetReview(c *gin.Context) {
	view, err := h.workflow.Review(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type markRequest struct {
	intentRequest
	Verdict string `json:"verdict"`
	Note    string `json:"note"`
}

// MarkChecklist records a verdict for one checklist item.
func (h *Handler) MarkChecklist(c *gin.Context) {
	var req markRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.workflow.MarkChecklist(c.Request.Context(), c.Param("id"), req.intent(c).Actor, c.Param("itemId"),
		domain.ChecklistMark{Verdict: domain.Verdict(req.Verdict), Note: req.Note})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type stepRequest struct {
	intentRequest
	Assignee string `json:"assignee"`
}

// StepAction runs start, complete, fail, reopen or assign on one step.
func (h *Handler) StepAction(c *gin.Context) {
	var req stepRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	id, stepID, opName := c.Param("id"), c.Param("step"), c.Param("op")

	var (
		out usecase.StepOutcome
		err error
	)
	if opName == "assign" {
		out, err = h.workflow.AssignStep(ctx, id, stepID, req.Assignee, req.intent(c))
	} else {
		op, ok := steps.ParseOp(opName)
		if !ok {
			h.fail(c, fmt.Errorf("%w: step operation %q", domain.ErrNotFound, opName))
			return
		}
		out, err = h.workflow.StepAction(ctx, id, op, stepID, req.intent(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type scheduleRequest struct {
	intentRequest
	Date        string           `json:"date"`
	Time        string           `json:"time"`
	Timezone    string           `json:"timezone"`
	AutoPublish *bool            `json:"auto_publish"`
	Channels    []channelRequest `json:"channels"`
}

// Schedule arms a publication schedule for an approved item.
func (h *Handler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	channels, err := toTriggers(req.Channels)
	if err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.workflow.Schedule(c.Request.Context(), c.Param("id"), req.intent(c), usecase.ScheduleRequest{
		Date:        req.Date,
		Time:        req.Time,
		Timezone:    req.Timezone,
		AutoPublish: req.AutoPublish,
		Channels:    channels,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetSchedule returns one active schedule.
func (h *Handler) GetSchedule(c *gin.Context) {
	view, err := h.workflow.ScheduleByID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelSchedule disarms the pending triggers of a schedule.
func (h *Handler) CancelSchedule(c *gin.Context) {
	view, err := h.workflow.CancelSchedule(c.Request.Context(), c.Param("id"), usecase.Intent{Actor: c.GetHeader(actorHeader)})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type bulkRequest struct {
	intentRequest
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
	StepID string   `json:"step_id"`
}

// Bulk applies one action to many items and reports per-item results.
func (h *Handler) Bulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if len(req.IDs) == 0 {
		h.fail(c, fmt.Errorf("%w: ids are required", domain.ErrInvalidInput))
		return
	}
	action, err := usecase.ParseBulkAction(req.Action, req.StepID)
	if err != nil {
		h.fail(c, err)
		return
	}
	results := h.workflow.Bulk(c.Request.Context(), req.IDs, action, req.intent(c))
	c.JSON(http.StatusOK, gin.H{"results": results})
}
