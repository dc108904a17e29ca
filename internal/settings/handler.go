// Package settings serves a user's messaging configuration, merged with the system defaults.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
	"github.com/nialike/backend/pkg/response"
)

// Store reads and writes user configurations.
type Store interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserConfiguration, error)
	Upsert(ctx context.Context, u *models.UserConfiguration) error
}

// Service resolves effective configurations on every read.
type Service struct {
	store    Store
	resolver *messaging.Resolver
}

// NewService creates a settings service.
func NewService(store Store, resolver *messaging.Resolver) *Service {
	return &Service{store: store, resolver: resolver}
}

// Effective returns the configuration the user's sends would use right now.
func (s *Service) Effective(ctx context.Context, userID uuid.UUID) (models.EffectiveConfig, error) {
	uc, err := s.store.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return models.EffectiveConfig{}, err
	}
	return s.resolver.Resolve(uc), nil
}

// ConfigurationRequest is the body for PUT /settings/configuration.
type ConfigurationRequest struct {
	WhatsAppAPIKey            string `json:"whatsapp_api_key"`
	WhatsAppPhoneNumber       string `json:"whatsapp_phone_number" binding:"max=32"`
	WhatsAppPhoneNumberID     string `json:"whatsapp_phone_number_id"`
	WhatsAppBusinessAccountID string `json:"whatsapp_business_account_id"`
	WhatsAppEnabled           bool   `json:"whatsapp_enabled"`
	SMSAPIKey                 string `json:"sms_api_key"`
	SMSProvider               string `json:"sms_provider"`
	SMSPhoneNumber            string `json:"sms_phone_number" binding:"max=32"`
	SMSSenderID               string `json:"sms_sender_id" binding:"max=11"`
	SMSEnabled                bool   `json:"sms_enabled"`
	EmailNotifications        bool   `json:"email_notifications"`
	PushNotifications         bool   `json:"push_notifications"`
	UseCustomConfig           bool   `json:"use_custom_config"`
}

// Handler handles settings HTTP endpoints.
type Handler struct {
	store   Store
	service *Service
}

// NewHandler creates a settings handler.
func NewHandler(store Store, service *Service) *Handler {
	return &Handler{store: store, service: service}
}

// Get handles GET /settings/configuration.
func (h *Handler) Get(c *gin.Context) {
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	cfg, err := h.service.Effective(c.Request.Context(), uid)
	if err != nil {
		response.Internal(c, "failed to load configuration")
		return
	}
	response.OK(c, cfg.Redacted())
}

// Put handles PUT /settings/configuration and returns the new effective configuration.
func (h *Handler) Put(c *gin.Context) {
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	var req ConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	if req.SMSProvider == "" {
		req.SMSProvider = "kilakona"
	}
	uc := &models.UserConfiguration{
		UserID:                    uid,
		WhatsAppAPIKey:            strings.TrimSpace(req.WhatsAppAPIKey),
		WhatsAppPhoneNumber:       strings.TrimSpace(req.WhatsAppPhoneNumber),
		WhatsAppPhoneNumberID:     strings.TrimSpace(req.WhatsAppPhoneNumberID),
		WhatsAppBusinessAccountID: strings.TrimSpace(req.WhatsAppBusinessAccountID),
		WhatsAppEnabled:           req.WhatsAppEnabled,
		SMSAPIKey:                 strings.TrimSpace(req.SMSAPIKey),
		SMSProvider:               req.SMSProvider,
		SMSPhoneNumber:            strings.TrimSpace(req.SMSPhoneNumber),
		SMSSenderID:               strings.TrimSpace(req.SMSSenderID),
		SMSEnabled:                req.SMSEnabled,
		EmailNotifications:        req.EmailNotifications,
		PushNotifications:         req.PushNotifications,
		UseCustomConfig:           req.UseCustomConfig,
	}
	if err := h.store.Upsert(c.Request.Context(), uc); err != nil {
		response.FromError(c, err, "configuration")
		return
	}
	response.OK(c, h.service.resolver.Resolve(uc).Redacted())
}
