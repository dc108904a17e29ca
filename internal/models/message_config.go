package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is an outbound messaging channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// SMSPurpose selects which SMS template an event uses.
type SMSPurpose string

const (
	SMSPurposeInvitation SMSPurpose = "invitation"
	SMSPurposeReminder   SMSPurpose = "reminder"
)

// ValidSMSPurpose reports whether p is a known SMS purpose.
func ValidSMSPurpose(p SMSPurpose) bool {
	return p == SMSPurposeInvitation || p == SMSPurposeReminder
}

// MappingEntry binds one template slot (header-0, body-1, ...) to a field path
// (event.name, guest.phone, card_url or an attribute key).
type MappingEntry struct {
	Slot  string
	Field string
}

// VariableMapping is an ordered slot -> field mapping. It is stored as a JSON object
// and keeps the object's key order, which is the order parameters are sent in.
type VariableMapping []MappingEntry

// MarshalJSON writes the mapping as a JSON object in entry order.
func (m VariableMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Slot)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping document order. Non-string values are
// kept in their JSON text form; a repeated key keeps its first position and last value.
func (m *VariableMapping) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("variable mapping: expected object")
	}
	out := VariableMapping{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("variable mapping: expected string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var field string
		if err := json.Unmarshal(raw, &field); err != nil {
			field = string(raw)
		}
		if i, seen := index[key]; seen {
			out[i].Field = field
			continue
		}
		index[key] = len(out)
		out = append(out, MappingEntry{Slot: key, Field: field})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// MessageTemplateConfig is the per-event, per-channel WhatsApp template setup.
type MessageTemplateConfig struct {
	ID               uuid.UUID       `json:"id"`
	EventID          uuid.UUID       `json:"event_id"`
	Channel          Channel         `json:"channel"`
	TemplateName     string          `json:"template_name"`
	TemplateLanguage string          `json:"template_language"`
	VariableMapping  VariableMapping `json:"variable_mapping"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SMSTemplate is a user-owned SMS body with {{token}} placeholders.
type SMSTemplate struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Body      string     `json:"body"`
	Purpose   SMSPurpose `json:"purpose"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EventSMSConfig links an event and purpose to an SMS template.
type EventSMSConfig struct {
	ID            uuid.UUID    `json:"id"`
	EventID       uuid.UUID    `json:"event_id"`
	Purpose       SMSPurpose   `json:"purpose"`
	SMSTemplateID uuid.UUID    `json:"sms_template_id"`
	Template      *SMSTemplate `json:"sms_templates,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
