package channels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/internal/messaging"
)

var creds = Credentials{APIKey: "token-1", PhoneNumberID: "pn-9", BusinessAccountID: "waba-3"}

func TestSendTemplate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, 0, nil)
	id, err := c.SendTemplate(context.Background(), creds, TemplateMessage{
		To:   "255753613628",
		Name: "wedding_invite",
		Components: []messaging.Component{
			{Type: "body", Parameters: []messaging.Parameter{messaging.TextParam("Grace")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "/v18.0/pn-9/messages", gotPath)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "template", gotBody["type"])
	tpl := gotBody["template"].(map[string]interface{})
	assert.Equal(t, "wedding_invite", tpl["name"])
	assert.Equal(t, "en", tpl["language"].(map[string]interface{})["code"])
	assert.Len(t, tpl["components"], 1)
}

func TestSendTemplateParameterMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"(#132000) Number of parameters does not match","code":132000,"error_data":{"details":"body: expected 5"}}}`))
	}))
	defer srv.Close()

	_, err := NewWhatsAppClient(srv.URL, 0, nil).SendTemplate(context.Background(), creds, TemplateMessage{To: "1", Name: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParameterMismatch))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "body: expected 5", apiErr.Details)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestSendTemplateOtherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	_, err := NewWhatsAppClient(srv.URL, 0, nil).SendTemplate(context.Background(), creds, TemplateMessage{To: "1", Name: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrParameterMismatch))
	assert.Equal(t, "Invalid OAuth access token", err.Error())
}

func TestPhoneNumberStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/pn-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"verified_name":"Nialike","quality_rating":"GREEN","code_verification_status":"VERIFIED"}`))
	}))
	defer srv.Close()

	st, err := NewWhatsAppClient(srv.URL, 0, nil).PhoneNumberStatus(context.Background(), creds)
	require.NoError(t, err)
	assert.True(t, st.Verified())
	assert.Equal(t, "GREEN", st.QualityRating)
	assert.False(t, PhoneStatus{}.Verified())
}

func TestListTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/waba-3/message_templates", r.URL.Path)
		assert.Equal(t, "wedding_invite", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"wedding_invite","language":"en","status":"APPROVED","components":[
			{"type":"HEADER","format":"IMAGE"},
			{"type":"BODY","text":"Dear {{1}}, join {{2}} at {{3}}"},
			{"type":"FOOTER","text":"Nialike"},
			{"type":"BUTTONS"}
		]}]}`))
	}))
	defer srv.Close()

	tpls, err := NewWhatsAppClient(srv.URL, 0, nil).ListTemplates(context.Background(), creds, "wedding_invite")
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, []string{"header-0", "body-0", "body-1", "body-2"}, tpls[0].Slots())
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "255753613628", FormatPhone("+255 753 613 628"))
	assert.Equal(t, "15551234567", FormatPhone("5551234567"))
	assert.Equal(t, "1555123456", FormatPhone("1555123456"))
	assert.Equal(t, "", FormatPhone("  "))
}
