package events

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// Store is the persistence surface of the event handlers.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetDefaultCardDesign(ctx context.Context, eventID uuid.UUID, designID *uuid.UUID) error
	ListAttributes(ctx context.Context, eventID uuid.UUID) ([]models.EventAttribute, error)
	CreateAttribute(ctx context.Context, a *models.EventAttribute) error
	GetAttributeOwned(ctx context.Context, id, userID uuid.UUID) (*models.EventAttribute, error)
	UpdateAttribute(ctx context.Context, a *models.EventAttribute) error
	DeleteAttribute(ctx context.Context, id uuid.UUID) error
}

// DesignLookup checks that a card design belongs to the caller.
type DesignLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.CardDesign, error)
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name        string             `json:"name" binding:"required,max=200"`
	Type        models.EventType   `json:"type"`
	Date        string             `json:"date"`
	Time        string             `json:"time"`
	Venue       string             `json:"venue"`
	DressCode   string             `json:"dress_code"`
	CoverImage  string             `json:"cover_image"`
	Description string             `json:"description"`
	Status      models.EventStatus `json:"status"`
}

// UpdateRequest is the body for PATCH /events/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Name        *string             `json:"name" binding:"omitempty,min=1,max=200"`
	Type        *models.EventType   `json:"type"`
	Date        *string             `json:"date"`
	Time        *string             `json:"time"`
	Venue       *string             `json:"venue"`
	DressCode   *string             `json:"dress_code"`
	CoverImage  *string             `json:"cover_image"`
	Description *string             `json:"description"`
	Status      *models.EventStatus `json:"status"`
}

// DefaultDesignRequest is the body for PUT /events/:id/default-card-design. A null id clears it.
type DefaultDesignRequest struct {
	CardDesignID *uuid.UUID `json:"card_design_id"`
}

// AttributeRequest is the body for POST /events/:id/attributes and PATCH /attributes/:id.
type AttributeRequest struct {
	Key         string               `json:"attribute_key" binding:"required,max=64"`
	Value       string               `json:"attribute_value"`
	Type        models.AttributeType `json:"attribute_type"`
	DisplayName string               `json:"display_name"`
	Required    bool                 `json:"is_required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store   Store
	designs DesignLookup
}

// NewHandler creates an event handler.
func NewHandler(store Store, designs DesignLookup) *Handler {
	return &Handler{store: store, designs: designs}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(auth.ContextUserID).(uuid.UUID)
}

// owned loads the :id event of the caller, writing the error response when it fails.
func (h *Handler) owned(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.store.GetOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "event")
		return nil, false
	}
	return e, true
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	e := &models.Event{
		UserID:      userID(c),
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Date:        req.Date,
		Time:        req.Time,
		Venue:       req.Venue,
		DressCode:   req.DressCode,
		CoverImage:  req.CoverImage,
		Description: req.Description,
		Status:      req.Status,
	}
	if e.Type == "" {
		e.Type = models.EventTypeOther
	}
	if e.Status == "" {
		e.Status = models.EventStatusDraft
	}
	if !models.ValidEventType(e.Type) {
		response.BadRequest(c, "invalid event type")
		return
	}
	if !models.ValidEventStatus(e.Status) {
		response.BadRequest(c, "invalid event status")
		return
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	apply(&e.Name, req.Name)
	apply(&e.Type, req.Type)
	apply(&e.Date, req.Date)
	apply(&e.Time, req.Time)
	apply(&e.Venue, req.Venue)
	apply(&e.DressCode, req.DressCode)
	apply(&e.CoverImage, req.CoverImage)
	apply(&e.Description, req.Description)
	apply(&e.Status, req.Status)
	if !models.ValidEventType(e.Type) {
		response.BadRequest(c, "invalid event type")
		return
	}
	if !models.ValidEventStatus(e.Status) {
		response.BadRequest(c, "invalid event status")
		return
	}
	if err := h.store.Update(c.Request.Context(), e); err != nil {
		response.FromError(c, err, "event")
		return
	}
	response.OK(c, e)
}

func apply[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Delete handles DELETE /events/:id. Guests and delivery logs go with it.
func (h *Handler) Delete(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), e.ID); err != nil {
		response.FromError(c, err, "event")
		return
	}
	response.NoContent(c)
}

// SetDefaultCardDesign handles PUT /events/:id/default-card-design.
func (h *Handler) SetDefaultCardDesign(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	var req DefaultDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	if req.CardDesignID != nil {
		if _, err := h.designs.GetOwned(c.Request.Context(), *req.CardDesignID, userID(c)); err != nil {
			response.FromError(c, err, "card design")
			return
		}
	}
	if err := h.store.SetDefaultCardDesign(c.Request.Context(), e.ID, req.CardDesignID); err != nil {
		response.FromError(c, err, "event")
		return
	}
	e.DefaultCardDesignID = req.CardDesignID
	response.OK(c, e)
}

// ListAttributes handles GET /events/:id/attributes.
func (h *Handler) ListAttributes(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	list, err := h.store.ListAttributes(c.Request.Context(), e.ID)
	if err != nil {
		response.Internal(c, "failed to list attributes")
		return
	}
	response.OK(c, list)
}

func (req AttributeRequest) validate() (AttributeRequest, string) {
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		return req, "attribute_key is required"
	}
	if strings.ContainsAny(req.Key, "{} ") {
		return req, "attribute_key must not contain braces or spaces"
	}
	if req.Type == "" {
		req.Type = models.AttributeTypeText
	}
	switch req.Type {
	case models.AttributeTypeText, models.AttributeTypeNumber, models.AttributeTypeDate, models.AttributeTypeBoolean:
	default:
		return req, "invalid attribute_type"
	}
	return req, ""
}

// CreateAttribute handles POST /events/:id/attributes.
func (h *Handler) CreateAttribute(c *gin.Context) {
	e, ok := h.owned(c)
	if !ok {
		return
	}
	var req AttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	req, msg := req.validate()
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}
	a := &models.EventAttribute{
		EventID:     e.ID,
		Key:         req.Key,
		Value:       req.Value,
		Type:        req.Type,
		DisplayName: req.DisplayName,
		Required:    req.Required,
	}
	if err := h.store.CreateAttribute(c.Request.Context(), a); err != nil {
		response.FromError(c, err, "attribute")
		return
	}
	response.Created(c, a)
}

func (h *Handler) ownedAttribute(c *gin.Context) (*models.EventAttribute, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid attribute id")
		return nil, false
	}
	a, err := h.store.GetAttributeOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "attribute")
		return nil, false
	}
	return a, true
}

// UpdateAttribute handles PATCH /attributes/:id.
func (h *Handler) UpdateAttribute(c *gin.Context) {
	a, ok := h.ownedAttribute(c)
	if !ok {
		return
	}
	var req AttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	req, msg := req.validate()
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}
	a.Key, a.Value, a.Type, a.DisplayName, a.Required = req.Key, req.Value, req.Type, req.DisplayName, req.Required
	if err := h.store.UpdateAttribute(c.Request.Context(), a); err != nil {
		response.FromError(c, err, "attribute")
		return
	}
	response.OK(c, a)
}

// DeleteAttribute handles DELETE /attributes/:id.
func (h *Handler) DeleteAttribute(c *gin.Context) {
	a, ok := h.ownedAttribute(c)
	if !ok {
		return
	}
	if err := h.store.DeleteAttribute(c.Request.Context(), a.ID); err != nil {
		response.FromError(c, err, "attribute")
		return
	}
	response.NoContent(c)
}
