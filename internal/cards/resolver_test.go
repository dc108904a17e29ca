package cards

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nialike/backend/internal/models"
)

func sampleGuest() models.Guest {
	return models.Guest{
		ID:          uuid.MustParse("0b8f0f3c-6f0e-4a36-9a55-2b2f6f0c0042"),
		Name:        "Grace",
		PlusOneName: "Peter",
		CardType:    "VIP",
	}
}

func sampleEvent() models.Event {
	return models.Event{
		ID:    uuid.MustParse("5d1d5a7e-1f53-4f39-8f7c-7d2f5b6f0001"),
		Name:  "Amina & John",
		Date:  "2025-06-01",
		Time:  "18:00",
		Venue: "Garden Hall",
	}
}

func TestResolveBuiltins(t *testing.T) {
	got := Resolve("Dear {{guest_name}}, join {{event_name}} on {{event_date}}", sampleGuest(), sampleEvent(), nil)
	assert.Equal(t, "Dear Grace, join Amina & John on 2025-06-01", got)
}

func TestResolveAllBuiltinsLeavesNoTokens(t *testing.T) {
	var b strings.Builder
	for _, name := range BuiltinTokens {
		b.WriteString(Token(name))
		b.WriteString(" ")
	}
	got := Resolve(b.String(), sampleGuest(), sampleEvent(), nil)
	assert.NotContains(t, got, "{{")
	assert.Contains(t, got, "0b8f0f3c-6f0e-4a36-9a55-2b2f6f0c0042")
	assert.Contains(t, got, "VIP")
	assert.Contains(t, got, "Peter")
}

func TestResolveBuiltinWinsOverAttribute(t *testing.T) {
	attrs := []models.EventAttribute{{Key: "guest_name", Value: "Impostor"}}
	got := Resolve("Hi {{guest_name}}", sampleGuest(), sampleEvent(), attrs)
	assert.Equal(t, "Hi Grace", got)
}

func TestResolveAttributes(t *testing.T) {
	attrs := []models.EventAttribute{
		{Key: "gift_registry", Value: "amazon.com/list"},
		{Key: "gift_registry", Value: "second"},
		{Key: "rsvp.by", Value: "May 1"},
		{Key: "empty", Value: ""},
		{Key: "", Value: "ignored"},
	}
	got := Resolve("{{gift_registry}} | {{rsvp.by}} | [{{empty}}] | {{unknown}} | {{}}", sampleGuest(), sampleEvent(), attrs)
	assert.Equal(t, "amazon.com/list | May 1 | [] | {{unknown}} | {{}}", got)
}

func TestResolveDoesNotRescanValues(t *testing.T) {
	g := sampleGuest()
	g.Name = "{{event_name}}"
	got := Resolve("{{guest_name}}", g, sampleEvent(), nil)
	assert.Equal(t, "{{event_name}}", got)
}

func TestResolveIdempotentOnResolvedOutput(t *testing.T) {
	attrs := []models.EventAttribute{{Key: "theme", Value: "Gold"}}
	once := Resolve("{{guest_name}} in {{theme}} at {{event_venue}}", sampleGuest(), sampleEvent(), attrs)
	twice := Resolve(once, sampleGuest(), sampleEvent(), attrs)
	assert.Equal(t, once, twice)
}

func TestResolveMissingFieldsAreEmpty(t *testing.T) {
	got := Resolve("[{{event_time}}][{{plus_one_name}}]", models.Guest{}, models.Event{}, nil)
	assert.Equal(t, "[][]", got)
}

func TestResolveQRCodeForUnsavedGuest(t *testing.T) {
	assert.Equal(t, "[]", Resolve("[{{qr_code}}]", models.Guest{Name: "Grace"}, sampleEvent(), nil))
	assert.Equal(t, "[0b8f0f3c-6f0e-4a36-9a55-2b2f6f0c0042]", Resolve("[{{qr_code}}]", sampleGuest(), sampleEvent(), nil))
}

func TestResolveWithExtraTokens(t *testing.T) {
	attrs := []models.EventAttribute{{Key: "card_url", Value: "attr"}}
	got := ResolveWith("{{guest_name}}: {{card_url}}", sampleGuest(), sampleEvent(), attrs, map[string]string{"card_url": "https://cdn/x.png"})
	assert.Equal(t, "Grace: https://cdn/x.png", got)
}
