package messageconfigs

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// Store is the persistence surface of the message configuration handlers.
type Store interface {
	GetWhatsApp(ctx context.Context, eventID uuid.UUID) (*models.MessageTemplateConfig, error)
	UpsertWhatsApp(ctx context.Context, m *models.MessageTemplateConfig) error
	GetSMS(ctx context.Context, eventID uuid.UUID, purpose models.SMSPurpose) (*models.EventSMSConfig, error)
	UpsertSMS(ctx context.Context, c *models.EventSMSConfig) error
	ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.SMSTemplate, error)
	GetTemplateOwned(ctx context.Context, id, userID uuid.UUID) (*models.SMSTemplate, error)
	CreateTemplate(ctx context.Context, t *models.SMSTemplate) error
	UpdateTemplate(ctx context.Context, t *models.SMSTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
}

// EventLookup checks event ownership.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
}

// ConfigSource returns the caller's effective messaging configuration.
type ConfigSource interface {
	Effective(ctx context.Context, userID uuid.UUID) (models.EffectiveConfig, error)
}

// TemplateLister lists templates registered on a WhatsApp business account.
type TemplateLister interface {
	ListTemplates(ctx context.Context, creds channels.Credentials, name string) ([]channels.Template, error)
}

// WhatsAppConfigRequest is the body for PUT /events/:id/message-config/whatsapp.
type WhatsAppConfigRequest struct {
	TemplateName     string                 `json:"template_name" binding:"required,max=512"`
	TemplateLanguage string                 `json:"template_language" binding:"max=15"`
	VariableMapping  models.VariableMapping `json:"variable_mapping"`
}

// SMSConfigRequest is the body for PUT /events/:id/sms-config/:purpose.
type SMSConfigRequest struct {
	SMSTemplateID uuid.UUID `json:"sms_template_id" binding:"required"`
}

// TemplateRequest is the body for POST /sms-templates and PUT /sms-templates/:id.
type TemplateRequest struct {
	Name    string            `json:"name" binding:"required,max=200"`
	Body    string            `json:"body" binding:"required,max=1600"`
	Purpose models.SMSPurpose `json:"purpose"`
}

// TemplateView is a WhatsApp template with the mapping slots it expects.
type TemplateView struct {
	channels.Template
	Slots []string `json:"slots"`
}

// Handler handles message configuration HTTP endpoints.
type Handler struct {
	store    Store
	events   EventLookup
	config   ConfigSource
	whatsapp TemplateLister
	logger   *zap.Logger
}

// NewHandler creates a message configuration handler.
func NewHandler(store Store, events EventLookup, config ConfigSource, whatsapp TemplateLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, config: config, whatsapp: whatsapp, logger: logger}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(auth.ContextUserID).(uuid.UUID)
}

func (h *Handler) ownedEvent(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	if _, err := h.events.GetOwned(c.Request.Context(), id, userID(c)); err != nil {
		response.FromError(c, err, "event")
		return uuid.Nil, false
	}
	return id, true
}

// GetWhatsApp handles GET /events/:id/message-config/whatsapp.
func (h *Handler) GetWhatsApp(c *gin.Context) {
	eventID, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	cfg, err := h.store.GetWhatsApp(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err, "whatsapp configuration")
		return
	}
	response.OK(c, cfg)
}

// PutWhatsApp handles PUT /events/:id/message-config/whatsapp.
func (h *Handler) PutWhatsApp(c *gin.Context) {
	eventID, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	var req WhatsAppConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	for _, e := range req.VariableMapping {
		if strings.TrimSpace(e.Slot) == "" || strings.TrimSpace(e.Field) == "" {
			response.BadRequest(c, "variable_mapping entries need a slot and a field")
			return
		}
	}
	if req.TemplateLanguage == "" {
		req.TemplateLanguage = "en"
	}
	cfg := &models.MessageTemplateConfig{
		EventID:          eventID,
		TemplateName:     strings.TrimSpace(req.TemplateName),
		TemplateLanguage: req.TemplateLanguage,
		VariableMapping:  req.VariableMapping,
	}
	if err := h.store.UpsertWhatsApp(c.Request.Context(), cfg); err != nil {
		response.FromError(c, err, "whatsapp configuration")
		return
	}
	response.OK(c, cfg)
}

func purpose(c *gin.Context) (models.SMSPurpose, bool) {
	p := models.SMSPurpose(c.Param("purpose"))
	if !models.ValidSMSPurpose(p) {
		response.BadRequest(c, "invalid sms purpose")
		return "", false
	}
	return p, true
}

// GetSMS handles GET /events/:id/sms-config/:purpose.
func (h *Handler) GetSMS(c *gin.Context) {
	eventID, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	p, ok := purpose(c)
	if !ok {
		return
	}
	cfg, err := h.store.GetSMS(c.Request.Context(), eventID, p)
	if err != nil {
		response.FromError(c, err, "sms configuration")
		return
	}
	response.OK(c, cfg)
}

// PutSMS handles PUT /events/:id/sms-config/:purpose.
func (h *Handler) PutSMS(c *gin.Context) {
	eventID, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	p, ok := purpose(c)
	if !ok {
		return
	}
	var req SMSConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	tmpl, err := h.store.GetTemplateOwned(c.Request.Context(), req.SMSTemplateID, userID(c))
	if err != nil {
		response.FromError(c, err, "sms template")
		return
	}
	cfg := &models.EventSMSConfig{EventID: eventID, Purpose: p, SMSTemplateID: tmpl.ID}
	if err := h.store.UpsertSMS(c.Request.Context(), cfg); err != nil {
		response.FromError(c, err, "sms configuration")
		return
	}
	cfg.Template = tmpl
	response.OK(c, cfg)
}

// ListTemplates handles GET /sms-templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	list, err := h.store.ListTemplates(c.Request.Context(), userID(c))
	if err != nil {
		response.Internal(c, "failed to list sms templates")
		return
	}
	response.OK(c, list)
}

func bindTemplate(c *gin.Context) (TemplateRequest, bool) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return req, false
	}
	if req.Purpose == "" {
		req.Purpose = models.SMSPurposeInvitation
	}
	if !models.ValidSMSPurpose(req.Purpose) {
		response.BadRequest(c, "invalid purpose")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	return req, true
}

// CreateTemplate handles POST /sms-templates.
func (h *Handler) CreateTemplate(c *gin.Context) {
	req, ok := bindTemplate(c)
	if !ok {
		return
	}
	t := &models.SMSTemplate{UserID: userID(c), Name: req.Name, Body: req.Body, Purpose: req.Purpose}
	if err := h.store.CreateTemplate(c.Request.Context(), t); err != nil {
		response.FromError(c, err, "sms template")
		return
	}
	response.Created(c, t)
}

func (h *Handler) ownedTemplate(c *gin.Context) (*models.SMSTemplate, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid sms template id")
		return nil, false
	}
	t, err := h.store.GetTemplateOwned(c.Request.Context(), id, userID(c))
	if err != nil {
		response.FromError(c, err, "sms template")
		return nil, false
	}
	return t, true
}

// UpdateTemplate handles PUT /sms-templates/:id.
func (h *Handler) UpdateTemplate(c *gin.Context) {
	t, ok := h.ownedTemplate(c)
	if !ok {
		return
	}
	req, ok := bindTemplate(c)
	if !ok {
		return
	}
	t.Name, t.Body, t.Purpose = req.Name, req.Body, req.Purpose
	if err := h.store.UpdateTemplate(c.Request.Context(), t); err != nil {
		response.FromError(c, err, "sms template")
		return
	}
	response.OK(c, t)
}

// DeleteTemplate handles DELETE /sms-templates/:id.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	t, ok := h.ownedTemplate(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTemplate(c.Request.Context(), t.ID); err != nil {
		response.FromError(c, err, "sms template")
		return
	}
	response.NoContent(c)
}

// ListWhatsAppTemplates handles GET /whatsapp/templates?name=. It uses the caller's
// effective credentials, so system and custom setups list their own account.
func (h *Handler) ListWhatsAppTemplates(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.config.Effective(ctx, userID(c))
	if err != nil {
		response.Internal(c, "failed to load messaging configuration")
		return
	}
	if cfg.WhatsAppAPIKey == "" || cfg.WhatsAppBusinessAccountID == "" {
		response.Unprocessable(c, "WhatsApp business account is not configured")
		return
	}
	list, err := h.whatsapp.ListTemplates(ctx, channels.Credentials{
		APIKey:            cfg.WhatsAppAPIKey,
		PhoneNumberID:     cfg.WhatsAppPhoneNumberID,
		BusinessAccountID: cfg.WhatsAppBusinessAccountID,
	}, c.Query("name"))
	if err != nil {
		h.logger.Warn("list whatsapp templates failed", zap.Error(err))
		response.ServiceUnavailable(c, "could not load WhatsApp templates: "+err.Error())
		return
	}
	out := make([]TemplateView, 0, len(list))
	for _, t := range list {
		out = append(out, TemplateView{Template: t, Slots: t.Slots()})
	}
	response.OK(c, out)
}
