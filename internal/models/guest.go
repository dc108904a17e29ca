package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus is the guest's attendance answer.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// DeliveryStatus tracks the invitation on its way to the guest.
type DeliveryStatus string

const (
	DeliveryNotSent   DeliveryStatus = "not_sent"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryViewed    DeliveryStatus = "viewed"
)

// Guest is an invitee of one event.
type Guest struct {
	ID                  uuid.UUID      `json:"id"`
	EventID             uuid.UUID      `json:"event_id"`
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	Phone               string         `json:"phone"`
	Category            string         `json:"category"`
	RSVPStatus          RSVPStatus     `json:"rsvp_status"`
	DeliveryStatus      DeliveryStatus `json:"delivery_status"`
	InvitedAt           *time.Time     `json:"invited_at,omitempty"`
	RespondedAt         *time.Time     `json:"responded_at,omitempty"`
	PlusOneAllowed      bool           `json:"plus_one_allowed"`
	PlusOneName         string         `json:"plus_one_name"`
	DietaryRestrictions string         `json:"dietary_restrictions"`
	TableNumber         *int           `json:"table_number,omitempty"`
	CardType            string         `json:"card_type"`
	CardCount           int            `json:"card_count"`
	CardURL             string         `json:"card_url,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ValidRSVPStatus reports whether s is a known RSVP status.
func ValidRSVPStatus(s RSVPStatus) bool {
	return s == RSVPPending || s == RSVPAccepted || s == RSVPDeclined
}

// ValidDeliveryStatus reports whether s is a known delivery status.
func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryNotSent, DeliverySent, DeliveryDelivered, DeliveryViewed:
		return true
	}
	return false
}
