package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

type memStore map[uuid.UUID]*models.UserConfiguration

func (m memStore) GetByUser(_ context.Context, userID uuid.UUID) (*models.UserConfiguration, error) {
	if u, ok := m[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (m memStore) Upsert(_ context.Context, u *models.UserConfiguration) error {
	if prev, ok := m[u.UserID]; ok {
		u.ID = prev.ID
	} else {
		u.ID = uuid.New()
	}
	cp := *u
	m[u.UserID] = &cp
	return nil
}

var defaults = config.MessagingDefaults{
	WhatsAppAPIKey:        "system-wa-key",
	WhatsAppPhoneNumberID: "111",
	WhatsAppEnabled:       true,
	SMSAPIKey:             "system-sms-key",
	SMSProvider:           "kilakona",
	SMSWebhookURL:         "https://sms.example.com/hook",
	SMSEnabled:            true,
	EmailNotifications:    true,
}

func setup(store memStore, user uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewService(store, messaging.NewResolver(defaults)))
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextUserID, user); c.Next() })
	r.GET("/settings/configuration", h.Get)
	r.PUT("/settings/configuration", h.Put)
	return r
}

func call(r *gin.Engine, method string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, "/settings/configuration", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env struct {
		Data map[string]interface{} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env.Data
}

func TestGetWithoutStoredConfigUsesSystem(t *testing.T) {
	code, data := call(setup(memStore{}, uuid.New()), http.MethodGet, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "system", data["source"])
	assert.Equal(t, "111", data["whatsapp_phone_number_id"])
	assert.Equal(t, "", data["whatsapp_api_key"])
	assert.Equal(t, "", data["sms_api_key"])
	assert.NotContains(t, data, "id")
	assert.NotContains(t, data, "sms_webhook_url")
}

func TestPutCustomConfig(t *testing.T) {
	store := memStore{}
	user := uuid.New()
	r := setup(store, user)

	code, data := call(r, http.MethodPut, map[string]interface{}{
		"use_custom_config":        true,
		"whatsapp_api_key":         " my-key ",
		"whatsapp_phone_number_id": "222",
		"whatsapp_enabled":         true,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "custom", data["source"])
	assert.Equal(t, "my-key", data["whatsapp_api_key"])
	assert.Equal(t, false, data["sms_enabled"])
	require.Contains(t, store, user)
	assert.Equal(t, "kilakona", store[user].SMSProvider)

	code, data = call(r, http.MethodPut, map[string]interface{}{"use_custom_config": false, "whatsapp_api_key": "my-key"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "system", data["source"])
	assert.Equal(t, false, data["use_custom_config"])
	assert.Equal(t, "111", data["whatsapp_phone_number_id"])
	assert.Equal(t, store[user].ID.String(), data["id"])
}

func TestPutValidation(t *testing.T) {
	code, _ := call(setup(memStore{}, uuid.New()), http.MethodPut, map[string]interface{}{"sms_sender_id": "WAY-TOO-LONG-SENDER"})
	assert.Equal(t, http.StatusBadRequest, code)
}
