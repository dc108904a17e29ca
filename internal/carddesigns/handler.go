package carddesigns

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// Store is the persistence surface of the card design handlers.
type Store interface {
	Create(ctx context.Context, d *models.CardDesign) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.CardDesign, error)
	ListByUser(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) ([]models.CardDesign, error)
	Update(ctx context.Context, d *models.CardDesign) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventLookup reads the caller's events.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
	ListAttributes(ctx context.Context, eventID uuid.UUID) ([]models.EventAttribute, error)
}

// GuestLookup reads the caller's guests.
type GuestLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Guest, error)
}

// Previewer renders a design to PNG bytes.
type Previewer interface {
	Preview(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) ([]byte, error)
}

// DesignRequest is the body for POST /card-designs and PUT /card-designs/:id.
// Canvas sides are bounded before the 3x render scale.
type DesignRequest struct {
	Name            string               `json:"name" binding:"required,max=200"`
	EventID         *uuid.UUID           `json:"event_id"`
	BackgroundImage string               `json:"background_image"`
	CanvasWidth     int                  `json:"canvas_width" binding:"required,min=1,max=4000"`
	CanvasHeight    int                  `json:"canvas_height" binding:"required,min=1,max=4000"`
	TextElements    []models.TextElement `json:"text_elements" binding:"dive"`
}

// Handler handles card design HTTP endpoints.
type Handler struct {
	store   Store
	events  EventLookup
	guests  GuestLookup
	preview Previewer
	logger  *zap.Logger
}

// NewHandler creates a card design handler.
func NewHandler(store Store, events EventLookup, guests GuestLookup, preview Previewer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, guests: guests, preview: preview, logger: logger}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(auth.ContextUserID).(uuid.UUID)
}

func (h *Handler) owned(c *gin.Context) (*models.CardDesign, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid card design id")
		return nil, false
	}
	d, err := h.store.GetOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "card design")
		return nil, false
	}
	return d, true
}

// bind reads and checks a design body, writing the error response when it fails.
func (h *Handler) bind(c *gin.Context) (DesignRequest, bool) {
	var req DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return req, false
	}
	for i, el := range req.TextElements {
		switch el.Type {
		case "", models.ElementText, models.ElementQRCode:
		default:
			response.BadRequest(c, fmt.Sprintf("text_elements[%d]: unknown type %q", i, el.Type))
			return req, false
		}
		if el.FontSize < 0 || el.Width < 0 || el.Height < 0 {
			response.BadRequest(c, fmt.Sprintf("text_elements[%d]: sizes must not be negative", i))
			return req, false
		}
	}
	if req.EventID != nil {
		if _, err := h.events.GetOwned(c.Request.Context(), *req.EventID, userID(c)); err != nil {
			response.FromError(c, err, "event")
			return req, false
		}
	}
	return req, true
}

// List handles GET /card-designs?event_id=.
func (h *Handler) List(c *gin.Context) {
	var eventID *uuid.UUID
	if s := c.Query("event_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		eventID = &id
	}
	list, err := h.store.ListByUser(c.Request.Context(), userID(c), eventID)
	if err != nil {
		response.Internal(c, "failed to list card designs")
		return
	}
	response.OK(c, list)
}

// Create handles POST /card-designs.
func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	d := &models.CardDesign{
		Name:            strings.TrimSpace(req.Name),
		UserID:          userID(c),
		EventID:         req.EventID,
		BackgroundImage: req.BackgroundImage,
		CanvasWidth:     req.CanvasWidth,
		CanvasHeight:    req.CanvasHeight,
		TextElements:    req.TextElements,
	}
	if err := h.store.Create(c.Request.Context(), d); err != nil {
		response.FromError(c, err, "card design")
		return
	}
	response.Created(c, d)
}

// Get handles GET /card-designs/:id.
func (h *Handler) Get(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	response.OK(c, d)
}

// Update handles PUT /card-designs/:id.
func (h *Handler) Update(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	d.Name = strings.TrimSpace(req.Name)
	d.EventID = req.EventID
	d.BackgroundImage = req.BackgroundImage
	d.CanvasWidth, d.CanvasHeight = req.CanvasWidth, req.CanvasHeight
	d.TextElements = req.TextElements
	if err := h.store.Update(c.Request.Context(), d); err != nil {
		response.FromError(c, err, "card design")
		return
	}
	response.OK(c, d)
}

// Delete handles DELETE /card-designs/:id.
func (h *Handler) Delete(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), d.ID); err != nil {
		response.FromError(c, err, "card design")
		return
	}
	response.NoContent(c)
}

// Preview handles GET /card-designs/:id/preview?guest_id=. Without a guest the card is
// rendered for a sample guest of the design's event.
func (h *Handler) Preview(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)

	guest := SampleGuest()
	if s := c.Query("guest_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid guest_id")
			return
		}
		g, err := h.guests.GetOwned(ctx, id, uid)
		if err != nil {
			response.FromError(c, err, "guest")
			return
		}
		guest = *g
	}

	event := models.Event{ID: uuid.Nil, Name: "Sample Event"}
	var attrs []models.EventAttribute
	eventID := d.EventID
	if guest.EventID != uuid.Nil {
		eventID = &guest.EventID
	}
	if eventID != nil {
		e, err := h.events.GetOwned(ctx, *eventID, uid)
		if err != nil {
			response.FromError(c, err, "event")
			return
		}
		event = *e
		if attrs, err = h.events.ListAttributes(ctx, e.ID); err != nil {
			response.Internal(c, "failed to load event attributes")
			return
		}
	}

	png, err := h.preview.Preview(ctx, *d, guest, event, attrs)
	if err != nil {
		h.logger.Warn("card preview failed", zap.String("design_id", d.ID.String()), zap.Error(err))
		response.Unprocessable(c, "card could not be rendered: "+err.Error())
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// SampleGuest is the placeholder guest used for previews.
func SampleGuest() models.Guest {
	return models.Guest{
		ID:         uuid.Nil,
		Name:       "Guest Name",
		Email:      "guest@example.com",
		Phone:      "+255700000000",
		Category:   "VIP",
		RSVPStatus: models.RSVPPending,
		CardType:   "single",
		CardCount:  1,
	}
}
