// Package invitations accepts send requests and hands them to the dispatch worker.
package invitations

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/dispatch"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/queue"
	"github.com/nialike/backend/pkg/response"
)

// EventLookup checks event ownership.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
}

// Preflighter validates a batch before it is queued.
type Preflighter interface {
	Preflight(ctx context.Context, req dispatch.Request) (models.EffectiveConfig, error)
}

// Enqueuer queues dispatch jobs.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, payload queue.DispatchPayload) (string, error)
}

// SendRequest is the body for POST /events/:id/invitations/send. One batch holds at most 1000 guests.
type SendRequest struct {
	GuestIDs []uuid.UUID `json:"guest_ids" binding:"required,min=1,max=1000"`
	WhatsApp bool        `json:"whatsapp"`
	SMS      bool        `json:"sms"`
}

// SendResponse identifies a queued batch. Progress arrives on the event's realtime feed under RunID.
type SendResponse struct {
	RunID   string    `json:"run_id"`
	JobID   string    `json:"job_id"`
	EventID uuid.UUID `json:"event_id"`
	Total   int       `json:"total"`
}

// Handler handles invitation send requests.
type Handler struct {
	events    EventLookup
	preflight Preflighter
	queue     Enqueuer
	logger    *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(events EventLookup, preflight Preflighter, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{events: events, preflight: preflight, queue: q, logger: logger}
}

// Send handles POST /events/:id/invitations/send. Configuration problems are reported
// synchronously; the batch itself runs in the worker.
func (h *Handler) Send(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()
	if _, err := h.events.GetOwned(ctx, eventID, uid); err != nil {
		response.FromError(c, err, "event")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}

	dreq := dispatch.Request{
		RunID:    uuid.NewString(),
		UserID:   uid,
		EventID:  eventID,
		GuestIDs: dedupe(req.GuestIDs),
		WhatsApp: req.WhatsApp,
		SMS:      req.SMS,
	}
	if _, err := h.preflight.Preflight(ctx, dreq); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidRequest):
			response.BadRequest(c, reason(err))
		case errors.Is(err, dispatch.ErrConfig):
			response.Unprocessable(c, reason(err))
		default:
			h.logger.Error("dispatch preflight failed", zap.String("event_id", eventID.String()), zap.Error(err))
			response.Internal(c, "failed to check messaging configuration")
		}
		return
	}

	jobID, err := h.queue.EnqueueDispatch(ctx, queue.DispatchPayload{
		RunID:    dreq.RunID,
		UserID:   dreq.UserID,
		EventID:  dreq.EventID,
		GuestIDs: dreq.GuestIDs,
		WhatsApp: dreq.WhatsApp,
		SMS:      dreq.SMS,
	})
	if err != nil {
		h.logger.Error("enqueue dispatch failed", zap.String("event_id", eventID.String()), zap.Error(err))
		response.ServiceUnavailable(c, "could not queue invitations")
		return
	}
	h.logger.Info("invitations queued",
		zap.String("run_id", dreq.RunID),
		zap.String("job_id", jobID),
		zap.String("event_id", eventID.String()),
		zap.Int("guests", len(dreq.GuestIDs)))
	response.Accepted(c, SendResponse{RunID: dreq.RunID, JobID: jobID, EventID: eventID, Total: len(dreq.GuestIDs)})
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// reason strips the sentinel prefix so users see only the cause.
func reason(err error) string {
	msg := err.Error()
	for _, s := range []error{dispatch.ErrConfig, dispatch.ErrInvalidRequest} {
		msg = strings.TrimPrefix(msg, s.Error()+": ")
	}
	return msg
}
