package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SupportMessageStatus transitions unread -> replied (the reply is an admin
// action; the inbound workflow only ever creates unread rows).
const (
	SupportMessageStatusUnread  = "unread"
	SupportMessageStatusReplied = "replied"
)

// SupportMessage is an inbound support email captured from the email
// provider's webhook. RawPayload keeps the original event body for audit.
type SupportMessage struct {
	ID                 uuid.UUID       `json:"id"`
	ProviderEmailID    string          `json:"provider_email_id,omitempty"`
	FromAddress        string          `json:"from_address"`
	FromName           string          `json:"from_name,omitempty"`
	Subject            string          `json:"subject,omitempty"`
	BodyText           string          `json:"body_text,omitempty"`
	BodyHTML           string          `json:"body_html,omitempty"`
	RegistrationNumber *string         `json:"registration_number,omitempty"`
	Status             string          `json:"status"`
	RawPayload         json.RawMessage `json:"-"`
	RepliedAt          *time.Time      `json:"replied_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
