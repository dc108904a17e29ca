package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of celebration.
type EventType string

const (
	EventTypeWedding     EventType = "wedding"
	EventTypeBirthday    EventType = "birthday"
	EventTypeAnniversary EventType = "anniversary"
	EventTypeSendOff     EventType = "send-off"
	EventTypeOther       EventType = "other"
)

// EventStatus is the publishing lifecycle of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a user-owned occasion with a guest list.
// Date and Time are kept as entered ("2025-06-01", "16:00") since they are printed on cards verbatim.
type Event struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              uuid.UUID   `json:"user_id"`
	Name                string      `json:"name"`
	Type                EventType   `json:"type"`
	Date                string      `json:"date"`
	Time                string      `json:"time"`
	Venue               string      `json:"venue"`
	DressCode           string      `json:"dress_code"`
	CoverImage          string      `json:"cover_image"`
	Description         string      `json:"description"`
	Status              EventStatus `json:"status"`
	GuestCount          int         `json:"guest_count"`
	RSVPCount           int         `json:"rsvp_count"`
	InvitationsSent     int         `json:"invitations_sent"`
	DefaultCardDesignID *uuid.UUID  `json:"default_card_design_id,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeWedding, EventTypeBirthday, EventTypeAnniversary, EventTypeSendOff, EventTypeOther:
		return true
	}
	return false
}

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCompleted:
		return true
	}
	return false
}

// AttributeType is the declared value type of an event attribute.
type AttributeType string

const (
	AttributeTypeText    AttributeType = "text"
	AttributeTypeNumber  AttributeType = "number"
	AttributeTypeDate    AttributeType = "date"
	AttributeTypeBoolean AttributeType = "boolean"
)

// EventAttribute is a custom key/value usable as a {{key}} placeholder for its event.
type EventAttribute struct {
	ID          uuid.UUID     `json:"id"`
	EventID     uuid.UUID     `json:"event_id"`
	Key         string        `json:"attribute_key"`
	Value       string        `json:"attribute_value"`
	Type        AttributeType `json:"attribute_type"`
	DisplayName string        `json:"display_name"`
	Required    bool          `json:"is_required"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
