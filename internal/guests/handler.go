package guests

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// Store is the persistence surface of the guest handlers.
type Store interface {
	Create(ctx context.Context, g *models.Guest) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Guest, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, f Filter) ([]models.Guest, error)
	Update(ctx context.Context, g *models.Guest) error
	UpdateRSVP(ctx context.Context, id uuid.UUID, status models.RSVPStatus, at time.Time) (*models.Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetCardURL(ctx context.Context, id uuid.UUID, url string) error
}

// EventLookup reads the caller's events.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
	ListAttributes(ctx context.Context, eventID uuid.UUID) ([]models.EventAttribute, error)
}

// DesignLookup finds card designs for generation.
type DesignLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.CardDesign, error)
	DefaultForEvent(ctx context.Context, event models.Event) (*models.CardDesign, error)
}

// CardGenerator renders and publishes a guest card.
type CardGenerator interface {
	Generate(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) (cards.Published, error)
}

// CreateRequest is the body for POST /events/:id/guests.
type CreateRequest struct {
	Name                string            `json:"name" binding:"required,max=200"`
	Email               string            `json:"email" binding:"omitempty,email"`
	Phone               string            `json:"phone" binding:"max=32"`
	Category            string            `json:"category"`
	RSVPStatus          models.RSVPStatus `json:"rsvp_status"`
	PlusOneAllowed      bool              `json:"plus_one_allowed"`
	PlusOneName         string            `json:"plus_one_name"`
	DietaryRestrictions string            `json:"dietary_restrictions"`
	TableNumber         *int              `json:"table_number" binding:"omitempty,min=0"`
	CardType            string            `json:"card_type"`
	CardCount           *int              `json:"card_count" binding:"omitempty,min=1"`
}

// UpdateRequest is the body for PATCH /guests/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Name                *string                `json:"name" binding:"omitempty,min=1,max=200"`
	Email               *string                `json:"email" binding:"omitempty,email"`
	Phone               *string                `json:"phone" binding:"omitempty,max=32"`
	Category            *string                `json:"category"`
	PlusOneAllowed      *bool                  `json:"plus_one_allowed"`
	PlusOneName         *string                `json:"plus_one_name"`
	DietaryRestrictions *string                `json:"dietary_restrictions"`
	TableNumber         *int                   `json:"table_number" binding:"omitempty,min=0"`
	CardType            *string                `json:"card_type"`
	CardCount           *int                   `json:"card_count" binding:"omitempty,min=1"`
	DeliveryStatus      *models.DeliveryStatus `json:"delivery_status"`
}

// RSVPRequest is the body for PATCH /guests/:id/rsvp.
type RSVPRequest struct {
	Status models.RSVPStatus `json:"rsvp_status" binding:"required"`
}

// CardRequest is the optional body for POST /guests/:id/card.
type CardRequest struct {
	CardDesignID *uuid.UUID `json:"card_design_id"`
}

// CardResponse tells where a generated card can be found.
type CardResponse struct {
	CardURL string `json:"card_url"`
	Kind    string `json:"kind"`
	Stored  bool   `json:"stored"`
}

// Handler handles guest HTTP endpoints.
type Handler struct {
	store   Store
	events  EventLookup
	designs DesignLookup
	cards   CardGenerator
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandler creates a guest handler.
func NewHandler(store Store, events EventLookup, designs DesignLookup, gen CardGenerator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, designs: designs, cards: gen, now: time.Now, logger: logger}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(auth.ContextUserID).(uuid.UUID)
}

func (h *Handler) ownedEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.events.GetOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "event")
		return nil, false
	}
	return e, true
}

func (h *Handler) owned(c *gin.Context) (*models.Guest, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid guest id")
		return nil, false
	}
	g, err := h.store.GetOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "guest")
		return nil, false
	}
	return g, true
}

// List handles GET /events/:id/guests?status=&q=.
func (h *Handler) List(c *gin.Context) {
	e, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	f := Filter{RSVPStatus: models.RSVPStatus(c.Query("status")), Query: c.Query("q")}
	if f.RSVPStatus != "" && !models.ValidRSVPStatus(f.RSVPStatus) {
		response.BadRequest(c, "invalid status filter")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), e.ID, f)
	if err != nil {
		response.Internal(c, "failed to list guests")
		return
	}
	response.OK(c, list)
}

// Create handles POST /events/:id/guests.
func (h *Handler) Create(c *gin.Context) {
	e, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	if req.RSVPStatus == "" {
		req.RSVPStatus = models.RSVPPending
	}
	if !models.ValidRSVPStatus(req.RSVPStatus) {
		response.BadRequest(c, "invalid rsvp_status")
		return
	}
	g := &models.Guest{
		EventID:             e.ID,
		Name:                strings.TrimSpace(req.Name),
		Email:               strings.TrimSpace(req.Email),
		Phone:               strings.TrimSpace(req.Phone),
		Category:            req.Category,
		RSVPStatus:          req.RSVPStatus,
		DeliveryStatus:      models.DeliveryNotSent,
		PlusOneAllowed:      req.PlusOneAllowed,
		PlusOneName:         req.PlusOneName,
		DietaryRestrictions: req.DietaryRestrictions,
		TableNumber:         req.TableNumber,
		CardType:            req.CardType,
		CardCount:           1,
	}
	if req.CardCount != nil {
		g.CardCount = *req.CardCount
	}
	if g.RSVPStatus != models.RSVPPending {
		now := h.now()
		g.RespondedAt = &now
	}
	if err := h.store.Create(c.Request.Context(), g); err != nil {
		response.FromError(c, err, "guest")
		return
	}
	response.Created(c, g)
}

// Get handles GET /guests/:id.
func (h *Handler) Get(c *gin.Context) {
	g, ok := h.owned(c)
	if !ok {
		return
	}
	response.OK(c, g)
}

// Update handles PATCH /guests/:id.
func (h *Handler) Update(c *gin.Context) {
	g, ok := h.owned(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	if req.DeliveryStatus != nil && !models.ValidDeliveryStatus(*req.DeliveryStatus) {
		response.BadRequest(c, "invalid delivery_status")
		return
	}
	apply(&g.Name, req.Name)
	apply(&g.Email, req.Email)
	apply(&g.Phone, req.Phone)
	apply(&g.Category, req.Category)
	apply(&g.PlusOneAllowed, req.PlusOneAllowed)
	apply(&g.PlusOneName, req.PlusOneName)
	apply(&g.DietaryRestrictions, req.DietaryRestrictions)
	apply(&g.CardType, req.CardType)
	apply(&g.CardCount, req.CardCount)
	apply(&g.DeliveryStatus, req.DeliveryStatus)
	if req.TableNumber != nil {
		g.TableNumber = req.TableNumber
	}
	if err := h.store.Update(c.Request.Context(), g); err != nil {
		response.FromError(c, err, "guest")
		return
	}
	response.OK(c, g)
}

func apply[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// UpdateRSVP handles PATCH /guests/:id/rsvp.
func (h *Handler) UpdateRSVP(c *gin.Context) {
	g, ok := h.owned(c)
	if !ok {
		return
	}
	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	if !models.ValidRSVPStatus(req.Status) {
		response.BadRequest(c, "invalid rsvp_status")
		return
	}
	updated, err := h.store.UpdateRSVP(c.Request.Context(), g.ID, req.Status, h.now())
	if err != nil {
		response.FromError(c, err, "guest")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /guests/:id.
func (h *Handler) Delete(c *gin.Context) {
	g, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), g.ID); err != nil {
		response.FromError(c, err, "guest")
		return
	}
	response.NoContent(c)
}

// GenerateCard handles POST /guests/:id/card. It renders the chosen or default design,
// publishes it, and stores the URL on the guest when the upload succeeded.
func (h *Handler) GenerateCard(c *gin.Context) {
	g, ok := h.owned(c)
	if !ok {
		return
	}
	var req CardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Invalid(c, err)
			return
		}
	}
	ctx := c.Request.Context()
	uid := userID(c)
	e, err := h.events.GetOwned(ctx, g.EventID, uid)
	if err != nil {
		response.FromError(c, err, "event")
		return
	}
	var design *models.CardDesign
	if req.CardDesignID != nil {
		design, err = h.designs.GetOwned(ctx, *req.CardDesignID, uid)
	} else {
		design, err = h.designs.DefaultForEvent(ctx, *e)
	}
	if err != nil {
		response.FromError(c, err, "card design")
		return
	}
	attrs, err := h.events.ListAttributes(ctx, e.ID)
	if err != nil {
		response.Internal(c, "failed to load event attributes")
		return
	}
	pub, err := h.cards.Generate(ctx, *design, *g, *e, attrs)
	if err != nil {
		h.logger.Warn("card generation failed", zap.String("guest_id", g.ID.String()), zap.Error(err))
		response.Unprocessable(c, "card could not be rendered: "+err.Error())
		return
	}
	if pub.Kind == cards.KindStored {
		if err := h.store.SetCardURL(ctx, g.ID, pub.Source); err != nil {
			response.Internal(c, "failed to save card url")
			return
		}
	}
	response.OK(c, CardResponse{CardURL: pub.Source, Kind: pub.Kind.String(), Stored: pub.Kind == cards.KindStored})
}
