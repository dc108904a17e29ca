// Package messaging turns event data into outbound WhatsApp and SMS payloads and resolves
// which messaging credentials apply to a user.
package messaging

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/models"
)

// ParamType distinguishes template parameter kinds.
type ParamType string

const (
	ParamText  ParamType = "text"
	ParamImage ParamType = "image"
)

// ImageLink is an image parameter source.
type ImageLink struct {
	Link string `json:"link"`
}

// Parameter is one WhatsApp template parameter.
type Parameter struct {
	Type  ParamType  `json:"type"`
	Text  string     `json:"text,omitempty"`
	Image *ImageLink `json:"image,omitempty"`
}

// MarshalJSON always emits "text" for text parameters, even when empty.
func (p Parameter) MarshalJSON() ([]byte, error) {
	if p.Type == ParamImage {
		return json.Marshal(struct {
			Type  ParamType  `json:"type"`
			Image *ImageLink `json:"image"`
		}{p.Type, p.Image})
	}
	return json.Marshal(struct {
		Type ParamType `json:"type"`
		Text string    `json:"text"`
	}{p.Type, p.Text})
}

// TextParam returns a text parameter.
func TextParam(s string) Parameter { return Parameter{Type: ParamText, Text: s} }

// ImageParam returns an image parameter linking to src.
func ImageParam(src string) Parameter {
	return Parameter{Type: ParamImage, Image: &ImageLink{Link: src}}
}

// Component groups parameters under a template section.
type Component struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters"`
}

// Field values available to a mapping entry.
type fieldSource struct {
	guest   models.Guest
	event   models.Event
	attrs   []models.EventAttribute
	cardURL string
}

type accessor struct {
	image bool
	value func(fieldSource) string
}

// fieldAccessors is keyed by normalized field name (dots replaced with underscores).
var fieldAccessors = map[string]accessor{
	"guest_name":       {value: func(s fieldSource) string { return s.guest.Name }},
	"event_name":       {value: func(s fieldSource) string { return s.event.Name }},
	"event_date":       {value: func(s fieldSource) string { return s.event.Date }},
	"event_time":       {value: func(s fieldSource) string { return s.event.Time }},
	"event_venue":      {value: func(s fieldSource) string { return s.event.Venue }},
	"event_dress_code": {value: func(s fieldSource) string { return s.event.DressCode }},
	"plus_one_name":    {value: func(s fieldSource) string { return s.guest.PlusOneName }},
	"card_type":        {value: func(s fieldSource) string { return s.guest.CardType }},
	"qr_code":          {value: func(s fieldSource) string { return cards.GuestCode(s.guest) }},
	"card_url":         {image: true, value: func(s fieldSource) string { return s.cardURL }},
}

// eventFields and guestFields serve dotted paths like event.description or guest.phone.
var eventFields = map[string]func(models.Event) string{
	"id":               func(e models.Event) string { return e.ID.String() },
	"name":             func(e models.Event) string { return e.Name },
	"type":             func(e models.Event) string { return string(e.Type) },
	"date":             func(e models.Event) string { return e.Date },
	"time":             func(e models.Event) string { return e.Time },
	"venue":            func(e models.Event) string { return e.Venue },
	"dress_code":       func(e models.Event) string { return e.DressCode },
	"description":      func(e models.Event) string { return e.Description },
	"cover_image":      func(e models.Event) string { return e.CoverImage },
	"status":           func(e models.Event) string { return string(e.Status) },
	"guest_count":      func(e models.Event) string { return nonZero(e.GuestCount) },
	"rsvp_count":       func(e models.Event) string { return nonZero(e.RSVPCount) },
	"invitations_sent": func(e models.Event) string { return nonZero(e.InvitationsSent) },
}

var guestFields = map[string]func(models.Guest) string{
	"id":                   func(g models.Guest) string { return g.ID.String() },
	"name":                 func(g models.Guest) string { return g.Name },
	"email":                func(g models.Guest) string { return g.Email },
	"phone":                func(g models.Guest) string { return g.Phone },
	"category":             func(g models.Guest) string { return g.Category },
	"rsvp_status":          func(g models.Guest) string { return string(g.RSVPStatus) },
	"delivery_status":      func(g models.Guest) string { return string(g.DeliveryStatus) },
	"plus_one_name":        func(g models.Guest) string { return g.PlusOneName },
	"dietary_restrictions": func(g models.Guest) string { return g.DietaryRestrictions },
	"card_type":            func(g models.Guest) string { return g.CardType },
	"card_count":           func(g models.Guest) string { return nonZero(g.CardCount) },
	"card_url":             func(g models.Guest) string { return g.CardURL },
	"table_number": func(g models.Guest) string {
		if g.TableNumber == nil {
			return ""
		}
		return strconv.Itoa(*g.TableNumber)
	},
}

func nonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// NormalizeField treats dots and underscores as equivalent.
func NormalizeField(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

// MapParameters resolves every mapping entry, in mapping order, to a template parameter.
// The result always has one parameter per entry; card_url entries become image parameters.
func MapParameters(cfg models.MessageTemplateConfig, guest models.Guest, event models.Event, attrs []models.EventAttribute, cardImageURL string) []Parameter {
	src := fieldSource{guest: guest, event: event, attrs: attrs, cardURL: cardImageURL}
	params := make([]Parameter, 0, len(cfg.VariableMapping))
	for _, entry := range cfg.VariableMapping {
		params = append(params, resolveField(src, entry.Field))
	}
	return params
}

func resolveField(src fieldSource, path string) Parameter {
	normalized := NormalizeField(path)
	if acc, ok := fieldAccessors[normalized]; ok {
		v := acc.value(src)
		if acc.image {
			return ImageParam(v)
		}
		return TextParam(v)
	}
	if v, ok := attributeValue(src.attrs, path, normalized); ok {
		return TextParam(v)
	}
	if v := dottedValue(src, path); v != "" {
		return TextParam(v)
	}
	return TextParam(path)
}

func attributeValue(attrs []models.EventAttribute, keys ...string) (string, bool) {
	for _, key := range keys {
		for _, a := range attrs {
			if a.Key != "" && a.Key == key {
				return a.Value, true
			}
		}
	}
	return "", false
}

func dottedValue(src fieldSource, path string) string {
	object, field, ok := strings.Cut(path, ".")
	if !ok {
		return ""
	}
	field, _, _ = strings.Cut(field, ".")
	switch object {
	case "event":
		if f, ok := eventFields[field]; ok {
			return f(src.event)
		}
	case "guest":
		if f, ok := guestFields[field]; ok {
			return f(src.guest)
		}
	}
	return ""
}

// BuildComponents splits parameters into a header (images) and a body (text). Without a
// mapping (nil, not empty), a stored card URL is sent as the header image. Inline data
// URIs and empty links are not sendable and never reach the header.
func BuildComponents(params []Parameter, mappingConfigured bool, cardImageURL string) []Component {
	var images, texts []Parameter
	for _, p := range params {
		if p.Type != ParamImage {
			texts = append(texts, p)
			continue
		}
		if p.Image != nil && sendableImage(p.Image.Link) {
			images = append(images, p)
		}
	}
	components := make([]Component, 0, 2)
	switch {
	case len(images) > 0:
		components = append(components, Component{Type: "header", Parameters: images})
	case !mappingConfigured && sendableImage(cardImageURL):
		components = append(components, Component{Type: "header", Parameters: []Parameter{ImageParam(cardImageURL)}})
	}
	if len(texts) > 0 {
		components = append(components, Component{Type: "body", Parameters: texts})
	}
	return components
}

func sendableImage(link string) bool {
	return link != "" && !cards.IsDataURI(link)
}

// RenderSMS fills an SMS body: card placeholders first, then {{card_url}}.
func RenderSMS(body string, guest models.Guest, event models.Event, attrs []models.EventAttribute, cardURL string) string {
	return cards.ResolveWith(body, guest, event, attrs, map[string]string{"card_url": cardURL})
}
