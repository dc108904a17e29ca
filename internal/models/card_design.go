package models

import (
	"time"

	"github.com/google/uuid"
)

// ElementType discriminates card elements.
type ElementType string

const (
	ElementText   ElementType = "text"
	ElementQRCode ElementType = "qr_code"
)

// TextElement is one positioned item on a card. QR elements use Width/Height instead of font metrics.
// JSON keys follow the card builder's stored format.
type TextElement struct {
	ID             string      `json:"id"`
	Type           ElementType `json:"type,omitempty"`
	Text           string      `json:"text"`
	X              float64     `json:"x"`
	Y              float64     `json:"y"`
	FontSize       float64     `json:"fontSize"`
	FontFamily     string      `json:"fontFamily"`
	Color          string      `json:"color"`
	FontWeight     string      `json:"fontWeight"`
	FontStyle      string      `json:"fontStyle"`
	TextDecoration string      `json:"textDecoration"`
	TextAlign      string      `json:"textAlign"`
	Width          float64     `json:"width,omitempty"`
	Height         float64     `json:"height,omitempty"`
}

// IsQRCode reports whether the element renders the guest QR code.
func (e TextElement) IsQRCode() bool { return e.Type == ElementQRCode }

// CardDesign is a visual invitation layout owned by a user.
type CardDesign struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	UserID          uuid.UUID     `json:"user_id"`
	EventID         *uuid.UUID    `json:"event_id,omitempty"`
	BackgroundImage string        `json:"background_image"`
	CanvasWidth     int           `json:"canvas_width"`
	CanvasHeight    int           `json:"canvas_height"`
	TextElements    []TextElement `json:"text_elements"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
