// Package notify dispatches transactional email through Resend and keeps a
// best-effort log of everything sent.
package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Sender sends email via the Resend API.
type Sender struct {
	client *resend.Client
	from   string // "Name <addr>" sender header
	logger *zap.Logger
}

// NewSender creates a Resend-backed sender.
func NewSender(apiKey, fromName, fromAddress string, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		client: resend.NewClient(apiKey),
		from:   fmt.Sprintf("%s <%s>", fromName, fromAddress),
		logger: logger,
	}
}

// Send dispatches one email and returns the provider message ID.
func (s *Sender) Send(ctx context.Context, to, subject, html string) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	s.logger.Debug("email sent", zap.String("to", to), zap.String("message_id", sent.Id))
	return sent.Id, nil
}

// SendWelcome renders and dispatches the post-payment welcome email.
func (s *Sender) SendWelcome(ctx context.Context, w Welcome) (string, error) {
	subject, html, err := RenderWelcome(w)
	if err != nil {
		return "", err
	}
	return s.Send(ctx, w.To, subject, html)
}
