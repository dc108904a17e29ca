package models

import (
	"time"

	"github.com/google/uuid"
)

// UserConfiguration holds a user's own messaging credentials and notification flags.
type UserConfiguration struct {
	ID                        uuid.UUID `json:"id"`
	UserID                    uuid.UUID `json:"user_id"`
	WhatsAppAPIKey            string    `json:"whatsapp_api_key"`
	WhatsAppPhoneNumber       string    `json:"whatsapp_phone_number"`
	WhatsAppPhoneNumberID     string    `json:"whatsapp_phone_number_id"`
	WhatsAppBusinessAccountID string    `json:"whatsapp_business_account_id"`
	WhatsAppEnabled           bool      `json:"whatsapp_enabled"`
	SMSAPIKey                 string    `json:"sms_api_key"`
	SMSProvider               string    `json:"sms_provider"`
	SMSPhoneNumber            string    `json:"sms_phone_number"`
	SMSSenderID               string    `json:"sms_sender_id"`
	SMSEnabled                bool      `json:"sms_enabled"`
	EmailNotifications        bool      `json:"email_notifications"`
	PushNotifications         bool      `json:"push_notifications"`
	UseCustomConfig           bool      `json:"use_custom_config"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// ConfigSource tells where the effective messaging values came from.
type ConfigSource string

const (
	ConfigSourceSystem ConfigSource = "system"
	ConfigSourceCustom ConfigSource = "custom"
)

// EffectiveConfig is the merged messaging configuration a send uses. Never persisted.
// Identity fields are nil when the user has no stored configuration.
type EffectiveConfig struct {
	ID                        *uuid.UUID   `json:"id,omitempty"`
	UserID                    *uuid.UUID   `json:"user_id,omitempty"`
	WhatsAppAPIKey            string       `json:"whatsapp_api_key"`
	WhatsAppPhoneNumber       string       `json:"whatsapp_phone_number"`
	WhatsAppPhoneNumberID     string       `json:"whatsapp_phone_number_id"`
	WhatsAppBusinessAccountID string       `json:"whatsapp_business_account_id"`
	WhatsAppEnabled           bool         `json:"whatsapp_enabled"`
	SMSAPIKey                 string       `json:"sms_api_key"`
	SMSAPISecret              string       `json:"-"`
	SMSProvider               string       `json:"sms_provider"`
	SMSPhoneNumber            string       `json:"sms_phone_number"`
	SMSSenderID               string       `json:"sms_sender_id"`
	SMSWebhookURL             string       `json:"-"`
	SMSEnabled                bool         `json:"sms_enabled"`
	EmailNotifications        bool         `json:"email_notifications"`
	PushNotifications         bool         `json:"push_notifications"`
	UseCustomConfig           bool         `json:"use_custom_config"`
	Source                    ConfigSource `json:"source"`
	CreatedAt                 *time.Time   `json:"created_at,omitempty"`
	UpdatedAt                 *time.Time   `json:"updated_at,omitempty"`
}

// Redacted hides the system credentials from API responses. A user's own keys are returned as stored.
func (c EffectiveConfig) Redacted() EffectiveConfig {
	if c.Source == ConfigSourceSystem {
		c.WhatsAppAPIKey = ""
		c.SMSAPIKey = ""
	}
	return c
}
