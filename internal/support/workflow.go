// Package support ingests inbound support email from the provider webhook
// into the admin inbox.
package support

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
)

// EventEmailReceived is the inbound event type this workflow consumes. Every
// other event type is acknowledged and ignored.
const EventEmailReceived = "email.received"

// InboundEvent is the wire shape of a provider inbound-email webhook.
type InboundEvent struct {
	Type string       `json:"type"`
	Data InboundEmail `json:"data"`
}

// InboundEmail carries the message fields. Some provider versions send
// email_id, older ones send id.
type InboundEmail struct {
	EmailID string `json:"email_id"`
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Store persists support messages.
type Store interface {
	Create(ctx context.Context, msg *models.SupportMessage) error
}

// Workflow converts inbound-email events into support message records.
type Workflow struct {
	store  Store
	logger *zap.Logger
}

// NewWorkflow creates an inbound support workflow.
func NewWorkflow(store Store, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{store: store, logger: logger}
}

// HandleInbound processes one provider event. handled is false when the
// event type is not email.received (acknowledged, no side effect). A persist
// failure is returned as an error with no partial state, so provider
// redelivery is safe.
func (w *Workflow) HandleInbound(ctx context.Context, ev InboundEvent, raw json.RawMessage) (msg *models.SupportMessage, handled bool, err error) {
	if ev.Type != EventEmailReceived {
		return nil, false, nil
	}

	providerID := ev.Data.EmailID
	if providerID == "" {
		providerID = ev.Data.ID
	}

	msg = &models.SupportMessage{
		ProviderEmailID:    providerID,
		FromAddress:        ev.Data.From,
		FromName:           SenderName(ev.Data.From),
		Subject:            ev.Data.Subject,
		BodyText:           ev.Data.Text,
		BodyHTML:           ev.Data.HTML,
		RegistrationNumber: ExtractRegistrationNumber(ev.Data.Subject, ev.Data.Text),
		Status:             models.SupportMessageStatusUnread,
		RawPayload:         raw,
	}
	if err := w.store.Create(ctx, msg); err != nil {
		return nil, true, fmt.Errorf("store support message: %w", err)
	}

	w.logger.Info("support message stored",
		zap.String("from", msg.FromAddress),
		zap.Stringp("registration_number", msg.RegistrationNumber))
	return msg, true, nil
}

// SenderName extracts the display name from a "Name <addr>" header value.
// When there is no display name (or the value is unparseable), the raw
// value is returned unchanged.
func SenderName(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil || addr.Name == "" {
		return strings.TrimSpace(from)
	}
	return addr.Name
}

// Registration numbers embedded in mail: WCU followed by exactly five digits.
var registrationNumberPattern = regexp.MustCompile(`(?i)\bWCU-\d{5}\b`)

// ExtractRegistrationNumber finds an embedded registration number, searching
// the subject before the body. Returns nil when neither matches.
func ExtractRegistrationNumber(subject, body string) *string {
	for _, s := range []string{subject, body} {
		if m := registrationNumberPattern.FindString(s); m != "" {
			n := strings.ToUpper(m)
			return &n
		}
	}
	return nil
}
