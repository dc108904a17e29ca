package messaging

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/internal/models"
)

func mapping(pairs ...string) models.VariableMapping {
	m := models.VariableMapping{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m = append(m, models.MappingEntry{Slot: pairs[i], Field: pairs[i+1]})
	}
	return m
}

func fixtures() (models.Guest, models.Event, []models.EventAttribute) {
	table := 7
	guest := models.Guest{
		ID:          uuid.MustParse("0b8f0f3c-6f0e-4a36-9a55-2b2f6f0c0042"),
		Name:        "Grace",
		Phone:       "+255 753 613 628",
		PlusOneName: "Peter",
		CardType:    "VIP",
		TableNumber: &table,
	}
	event := models.Event{
		Name:        "Amina & John",
		Date:        "2025-06-01",
		Time:        "18:00",
		Venue:       "Garden Hall",
		DressCode:   "Black tie",
		Description: "",
	}
	attrs := []models.EventAttribute{
		{Key: "gift_registry", Value: "amazon.com/list"},
		{Key: "rsvp_by", Value: "May 1"},
	}
	return guest, event, attrs
}

func TestMapParametersExample(t *testing.T) {
	guest := models.Guest{Name: "Grace"}
	event := models.Event{Venue: "Garden Hall"}
	cfg := models.MessageTemplateConfig{VariableMapping: mapping("body-0", "guest.name", "body-1", "event.venue")}

	got := MapParameters(cfg, guest, event, nil, "")
	assert.Equal(t, []Parameter{
		{Type: ParamText, Text: "Grace"},
		{Type: ParamText, Text: "Garden Hall"},
	}, got)
}

func TestMapParametersFollowsMappingOrder(t *testing.T) {
	guest, event, attrs := fixtures()
	cfg := models.MessageTemplateConfig{VariableMapping: mapping(
		"body-3", "event_time",
		"body-0", "event.dress_code",
		"header-0", "card_url",
		"body-1", "plus_one_name",
		"body-2", "qr_code",
	)}

	got := MapParameters(cfg, guest, event, attrs, "https://cdn/card.png")
	require.Len(t, got, 5)
	assert.Equal(t, TextParam("18:00"), got[0])
	assert.Equal(t, TextParam("Black tie"), got[1])
	assert.Equal(t, ImageParam("https://cdn/card.png"), got[2])
	assert.Equal(t, TextParam("Peter"), got[3])
	assert.Equal(t, TextParam(guest.ID.String()), got[4])
}

func TestMapParametersImageOnlyForCardURL(t *testing.T) {
	guest, event, attrs := fixtures()
	without := MapParameters(models.MessageTemplateConfig{VariableMapping: mapping("body-0", "guest_name", "body-1", "event_date")}, guest, event, attrs, "https://cdn/card.png")
	with := MapParameters(models.MessageTemplateConfig{VariableMapping: mapping("body-0", "guest_name", "header-0", "card.url")}, guest, event, attrs, "https://cdn/card.png")

	countImages := func(ps []Parameter) int {
		n := 0
		for _, p := range ps {
			if p.Type == ParamImage {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 0, countImages(without))
	assert.Equal(t, 1, countImages(with))
}

func TestMapParametersFallbacks(t *testing.T) {
	guest, event, attrs := fixtures()
	cfg := models.MessageTemplateConfig{VariableMapping: mapping(
		"body-0", "gift_registry",
		"body-1", "rsvp.by",
		"body-2", "guest.phone",
		"body-3", "guest.table_number",
		"body-4", "event.description",
		"body-5", "event.unknown",
		"body-6", "Welcome!",
	)}

	got := MapParameters(cfg, guest, event, attrs, "")
	assert.Equal(t, []Parameter{
		TextParam("amazon.com/list"),
		TextParam("May 1"),
		TextParam("+255 753 613 628"),
		TextParam("7"),
		TextParam("event.description"),
		TextParam("event.unknown"),
		TextParam("Welcome!"),
	}, got)
}

func TestMapParametersEmptyMapping(t *testing.T) {
	guest, event, attrs := fixtures()
	assert.Empty(t, MapParameters(models.MessageTemplateConfig{}, guest, event, attrs, "x"))
}

func TestMapParametersQRCodeForUnsavedGuest(t *testing.T) {
	cfg := models.MessageTemplateConfig{VariableMapping: mapping("body-0", "qr_code")}
	got := MapParameters(cfg, models.Guest{Name: "Grace"}, models.Event{}, nil, "")
	assert.Equal(t, []Parameter{TextParam("")}, got)
}

func TestBuildComponents(t *testing.T) {
	params := []Parameter{TextParam("Grace"), ImageParam("https://cdn/card.png"), TextParam("Garden Hall")}
	got := BuildComponents(params, true, "https://cdn/card.png")
	assert.Equal(t, []Component{
		{Type: "header", Parameters: []Parameter{ImageParam("https://cdn/card.png")}},
		{Type: "body", Parameters: []Parameter{TextParam("Grace"), TextParam("Garden Hall")}},
	}, got)
}

func TestBuildComponentsCardFallback(t *testing.T) {
	got := BuildComponents(nil, false, "https://cdn/card.png")
	assert.Equal(t, []Component{{Type: "header", Parameters: []Parameter{ImageParam("https://cdn/card.png")}}}, got)

	assert.Empty(t, BuildComponents(nil, false, "data:image/png;base64,AAAA"))
	assert.Empty(t, BuildComponents(nil, true, "https://cdn/card.png"))
	assert.Empty(t, BuildComponents(nil, false, ""))
}

func TestBuildComponentsEmptyMappingHasNoCardFallback(t *testing.T) {
	guest, event, attrs := fixtures()
	cfg := models.MessageTemplateConfig{VariableMapping: models.VariableMapping{}}
	params := MapParameters(cfg, guest, event, attrs, "https://cdn/card.png")
	assert.Empty(t, BuildComponents(params, cfg.VariableMapping != nil, "https://cdn/card.png"))

	var unset models.MessageTemplateConfig
	require.NoError(t, json.Unmarshal([]byte(`{"variable_mapping":null}`), &unset))
	assert.Nil(t, unset.VariableMapping)
	var empty models.MessageTemplateConfig
	require.NoError(t, json.Unmarshal([]byte(`{"variable_mapping":{}}`), &empty))
	assert.NotNil(t, empty.VariableMapping)
}

func TestBuildComponentsDropsInlineCardImage(t *testing.T) {
	guest, event, attrs := fixtures()
	inline := "data:image/png;base64,AAAA"
	cfg := models.MessageTemplateConfig{VariableMapping: mapping("header-0", "card_url", "body-0", "guest_name")}

	got := BuildComponents(MapParameters(cfg, guest, event, attrs, inline), true, inline)
	assert.Equal(t, []Component{{Type: "body", Parameters: []Parameter{TextParam("Grace")}}}, got)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "data:")
}

func TestComponentJSON(t *testing.T) {
	raw, err := json.Marshal(BuildComponents([]Parameter{ImageParam("u"), TextParam("t")}, true, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"header","parameters":[{"type":"image","image":{"link":"u"}}]},
		{"type":"body","parameters":[{"type":"text","text":"t"}]}
	]`, string(raw))
}

func TestRenderSMS(t *testing.T) {
	guest, event, attrs := fixtures()
	body := "Hi {{guest_name}}, {{event_name}} at {{event_venue}}. Gifts: {{gift_registry}}. Card: {{card_url}} {{missing}}"
	got := RenderSMS(body, guest, event, attrs, "https://cdn/card.png")
	assert.Equal(t, "Hi Grace, Amina & John at Garden Hall. Gifts: amazon.com/list. Card: https://cdn/card.png {{missing}}", got)
}

func TestEmptyTextParamKeepsTextKey(t *testing.T) {
	raw, err := json.Marshal(TextParam(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":""}`, string(raw))
}
