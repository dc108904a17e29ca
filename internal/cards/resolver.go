// Package cards resolves card text, renders card designs to images and publishes them.
package cards

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nialike/backend/internal/models"
)

// Token wraps a placeholder name in double braces.
func Token(name string) string {
	return "{{" + name + "}}"
}

// BuiltinTokens lists the built-in placeholders in substitution order.
var BuiltinTokens = []string{
	"guest_name",
	"event_name",
	"event_date",
	"event_time",
	"event_venue",
	"plus_one_name",
	"card_type",
	"qr_code",
}

// builtinValues returns built-in token values in BuiltinTokens order.
func builtinValues(guest models.Guest, event models.Event) []string {
	return []string{
		guest.Name,
		event.Name,
		event.Date,
		event.Time,
		event.Venue,
		guest.PlusOneName,
		guest.CardType,
		GuestCode(guest),
	}
}

// GuestCode is the value behind {{qr_code}}: the guest's ID, or "" for an unsaved guest.
func GuestCode(guest models.Guest) string {
	if guest.ID == uuid.Nil {
		return ""
	}
	return guest.ID.String()
}

// Resolve substitutes {{token}} placeholders in text in a single left-to-right pass.
// Built-ins take precedence over attributes of the same name, and the first of two
// attributes sharing a key wins. Keys match literally; substituted values are never
// rescanned and unknown tokens are left as-is.
func Resolve(text string, guest models.Guest, event models.Event, attrs []models.EventAttribute) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return newReplacer(guest, event, attrs, nil).Replace(text)
}

// newReplacer builds the substitution table: built-ins, then extra pairs, then attributes.
func newReplacer(guest models.Guest, event models.Event, attrs []models.EventAttribute, extra []string) *strings.Replacer {
	values := builtinValues(guest, event)
	pairs := make([]string, 0, 2*(len(BuiltinTokens)+len(attrs))+len(extra))
	for i, name := range BuiltinTokens {
		pairs = append(pairs, Token(name), values[i])
	}
	pairs = append(pairs, extra...)
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		pairs = append(pairs, Token(a.Key), a.Value)
	}
	return strings.NewReplacer(pairs...)
}

// ResolveWith is Resolve with additional token values that rank after the built-ins and
// before attributes, e.g. card_url for SMS bodies.
func ResolveWith(text string, guest models.Guest, event models.Event, attrs []models.EventAttribute, extra map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, Token(name), extra[name])
	}
	return newReplacer(guest, event, attrs, pairs).Replace(text)
}
