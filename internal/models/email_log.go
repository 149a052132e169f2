package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for outbound mail.
const (
	EmailTypeWelcome      = "welcome"
	EmailTypeUpdateLink   = "update_link"
	EmailTypeSupportReply = "support_reply"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog is an append-only, best-effort record of outbound emails. It is
// non-authoritative: a failed insert never fails the sending workflow.
type EmailLog struct {
	ID                 uuid.UUID `json:"id"`
	RegistrationNumber *string   `json:"registration_number,omitempty"`
	EmailType          string    `json:"email_type"`
	RecipientEmail     string    `json:"recipient_email"`
	Subject            string    `json:"subject,omitempty"`
	Status             string    `json:"status"`
	ProviderMessageID  string    `json:"provider_message_id,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
