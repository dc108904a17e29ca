package messaging

import (
	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/models"
)

// Resolver merges a user's messaging configuration with the system defaults.
type Resolver struct {
	defaults config.MessagingDefaults
}

// NewResolver returns a resolver over the start-up defaults.
func NewResolver(defaults config.MessagingDefaults) *Resolver {
	return &Resolver{defaults: defaults}
}

// Resolve returns the configuration a user's sends use. Without a stored configuration, or
// with use_custom_config off, the system defaults apply; the user's toggle and identity
// fields are still reported. It performs no I/O and is meant to be called on every read.
func (r *Resolver) Resolve(uc *models.UserConfiguration) models.EffectiveConfig {
	if uc != nil && uc.UseCustomConfig {
		return r.custom(uc)
	}
	d := r.defaults
	eff := models.EffectiveConfig{
		WhatsAppAPIKey:            d.WhatsAppAPIKey,
		WhatsAppPhoneNumber:       d.WhatsAppPhoneNumber,
		WhatsAppPhoneNumberID:     d.WhatsAppPhoneNumberID,
		WhatsAppBusinessAccountID: d.WhatsAppBusinessAccountID,
		WhatsAppEnabled:           d.WhatsAppEnabled,
		SMSAPIKey:                 d.SMSAPIKey,
		SMSAPISecret:              d.SMSAPISecret,
		SMSProvider:               d.SMSProvider,
		SMSPhoneNumber:            d.SMSPhoneNumber,
		SMSSenderID:               d.SMSSenderID,
		SMSWebhookURL:             d.SMSWebhookURL,
		SMSEnabled:                d.SMSEnabled,
		EmailNotifications:        d.EmailNotifications,
		PushNotifications:         d.PushNotifications,
		Source:                    models.ConfigSourceSystem,
	}
	if uc != nil {
		withIdentity(&eff, uc)
		eff.UseCustomConfig = uc.UseCustomConfig
	}
	return eff
}

// custom returns the user's values. The SMS gateway endpoint is deployment-wide and always
// comes from the defaults.
func (r *Resolver) custom(uc *models.UserConfiguration) models.EffectiveConfig {
	eff := models.EffectiveConfig{
		WhatsAppAPIKey:            uc.WhatsAppAPIKey,
		WhatsAppPhoneNumber:       uc.WhatsAppPhoneNumber,
		WhatsAppPhoneNumberID:     uc.WhatsAppPhoneNumberID,
		WhatsAppBusinessAccountID: uc.WhatsAppBusinessAccountID,
		WhatsAppEnabled:           uc.WhatsAppEnabled,
		SMSAPIKey:                 uc.SMSAPIKey,
		SMSProvider:               uc.SMSProvider,
		SMSPhoneNumber:            uc.SMSPhoneNumber,
		SMSSenderID:               uc.SMSSenderID,
		SMSWebhookURL:             r.defaults.SMSWebhookURL,
		SMSEnabled:                uc.SMSEnabled,
		EmailNotifications:        uc.EmailNotifications,
		PushNotifications:         uc.PushNotifications,
		UseCustomConfig:           true,
		Source:                    models.ConfigSourceCustom,
	}
	withIdentity(&eff, uc)
	return eff
}

func withIdentity(eff *models.EffectiveConfig, uc *models.UserConfiguration) {
	id, userID := uc.ID, uc.UserID
	created, updated := uc.CreatedAt, uc.UpdatedAt
	eff.ID = &id
	eff.UserID = &userID
	eff.CreatedAt = &created
	eff.UpdatedAt = &updated
}
