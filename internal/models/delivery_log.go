package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryLogStatus is the outcome of one send attempt.
const (
	DeliveryLogStatusSent   = "sent"
	DeliveryLogStatusFailed = "failed"
)

// DeliveryLog records one per-guest, per-channel send attempt of a dispatch run.
type DeliveryLog struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	GuestID      *uuid.UUID `json:"guest_id,omitempty"`
	RunID        string     `json:"run_id"`
	Channel      Channel    `json:"channel"`
	Recipient    string     `json:"recipient"`
	Status       string     `json:"status"`
	Message      string     `json:"message"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
