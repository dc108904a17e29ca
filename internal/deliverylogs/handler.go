package deliverylogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// Lister reads delivery logs.
type Lister interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, f Filter) ([]*models.DeliveryLog, error)
}

// EventLookup checks event ownership.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
}

// Handler handles delivery log HTTP endpoints.
type Handler struct {
	repo   Lister
	events EventLookup
}

// NewHandler creates a delivery logs handler.
func NewHandler(repo Lister, events EventLookup) *Handler {
	return &Handler{repo: repo, events: events}
}

// ListByEvent handles GET /events/:id/deliveries?run_id=&channel=&status=&limit=.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if _, err := h.events.GetOwned(c.Request.Context(), eventID, uid); err != nil {
		response.FromError(c, err, "event")
		return
	}
	f := Filter{RunID: c.Query("run_id"), Channel: models.Channel(c.Query("channel")), Status: c.Query("status")}
	if f.Channel != "" && f.Channel != models.ChannelSMS && f.Channel != models.ChannelWhatsApp {
		response.BadRequest(c, "invalid channel")
		return
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			response.BadRequest(c, "limit must be between 1 and 1000")
			return
		}
		f.Limit = n
	}
	logs, err := h.repo.ListByEvent(c.Request.Context(), eventID, f)
	if err != nil {
		response.Internal(c, "failed to load delivery logs")
		return
	}
	response.OK(c, logs)
}
