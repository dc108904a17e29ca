package messaging

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/models"
)

func systemDefaults() config.MessagingDefaults {
	return config.MessagingDefaults{
		WhatsAppAPIKey:            "sys-wa-key",
		WhatsAppPhoneNumber:       "255700000000",
		WhatsAppPhoneNumberID:     "sys-pnid",
		WhatsAppBusinessAccountID: "sys-waba",
		WhatsAppEnabled:           true,
		SMSAPIKey:                 "sys-sms-key",
		SMSProvider:               "kilakona",
		SMSPhoneNumber:            "255711111111",
		SMSSenderID:               "NIALIKE",
		SMSWebhookURL:             "https://gateway.example.com/sms",
		SMSEnabled:                true,
		EmailNotifications:        true,
	}
}

func userConfig(custom bool) *models.UserConfiguration {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.UserConfiguration{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		WhatsAppAPIKey:        "user-wa-key",
		WhatsAppPhoneNumberID: "user-pnid",
		WhatsAppEnabled:       false,
		SMSAPIKey:             "user-sms-key",
		SMSSenderID:           "GRACE",
		SMSEnabled:            true,
		PushNotifications:     true,
		UseCustomConfig:       custom,
		CreatedAt:             ts,
		UpdatedAt:             ts,
	}
}

func TestResolveWithoutUserConfig(t *testing.T) {
	eff := NewResolver(systemDefaults()).Resolve(nil)
	assert.Equal(t, "sys-wa-key", eff.WhatsAppAPIKey)
	assert.Equal(t, "sys-pnid", eff.WhatsAppPhoneNumberID)
	assert.True(t, eff.WhatsAppEnabled)
	assert.False(t, eff.UseCustomConfig)
	assert.Nil(t, eff.UserID)
	assert.Nil(t, eff.ID)
	assert.Equal(t, models.ConfigSourceSystem, eff.Source)
}

func TestResolveCustomDisabledUsesDefaults(t *testing.T) {
	uc := userConfig(false)
	eff := NewResolver(systemDefaults()).Resolve(uc)

	assert.Equal(t, "sys-wa-key", eff.WhatsAppAPIKey)
	assert.Equal(t, "sys-pnid", eff.WhatsAppPhoneNumberID)
	assert.Equal(t, "sys-sms-key", eff.SMSAPIKey)
	assert.Equal(t, "NIALIKE", eff.SMSSenderID)
	assert.True(t, eff.WhatsAppEnabled)
	assert.False(t, eff.PushNotifications)

	assert.False(t, eff.UseCustomConfig)
	require.NotNil(t, eff.UserID)
	assert.Equal(t, uc.UserID, *eff.UserID)
	assert.Equal(t, uc.ID, *eff.ID)
	assert.Equal(t, uc.CreatedAt, *eff.CreatedAt)
	assert.Equal(t, models.ConfigSourceSystem, eff.Source)
}

func TestResolveCustomEnabledUsesUserValues(t *testing.T) {
	uc := userConfig(true)
	eff := NewResolver(systemDefaults()).Resolve(uc)

	assert.Equal(t, "user-wa-key", eff.WhatsAppAPIKey)
	assert.Equal(t, "user-pnid", eff.WhatsAppPhoneNumberID)
	assert.Empty(t, eff.WhatsAppBusinessAccountID)
	assert.False(t, eff.WhatsAppEnabled)
	assert.Equal(t, "GRACE", eff.SMSSenderID)
	assert.True(t, eff.PushNotifications)
	assert.True(t, eff.UseCustomConfig)
	assert.Equal(t, uc.UserID, *eff.UserID)
	assert.Equal(t, "https://gateway.example.com/sms", eff.SMSWebhookURL)
	assert.Equal(t, models.ConfigSourceCustom, eff.Source)
}

func TestResolveReflectsToggleImmediately(t *testing.T) {
	r := NewResolver(systemDefaults())
	uc := userConfig(false)
	assert.Equal(t, "sys-wa-key", r.Resolve(uc).WhatsAppAPIKey)
	uc.UseCustomConfig = true
	assert.Equal(t, "user-wa-key", r.Resolve(uc).WhatsAppAPIKey)
}
