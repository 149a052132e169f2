// Package fulfillment turns a confirmed checkout event into a completed
// registration: certificate rendered and stored, record marked completed,
// welcome email dispatched. The status write is guarded so redelivered or
// concurrent events for the same registration complete it at most once.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/certificate"
	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/internal/registry"
)

var (
	// ErrMalformedEvent indicates the event carries no registration number.
	// Terminal: the event is acknowledged and dropped, never retried.
	ErrMalformedEvent = errors.New("fulfillment: event missing registration number")
	// ErrRecordNotFound indicates the referenced registration does not exist.
	// Terminal: acknowledged, logged, dropped.
	ErrRecordNotFound = errors.New("fulfillment: registration not found")
)

// PaymentEvent is the provider-agnostic view of a completed-checkout callback.
type PaymentEvent struct {
	SessionID          string
	RegistrationNumber string
	CustomerID         string
	CustomerEmail      string
	CustomerName       string
	PaymentIntentID    string
	PaymentStatus      string
}

// RecordStore is the registration persistence the workflow depends on.
type RecordStore interface {
	GetByNumber(ctx context.Context, number string) (*models.Registration, error)
	// Complete transitions pending -> completed and returns false when the
	// record was not pending (already completed by a concurrent delivery).
	Complete(ctx context.Context, number, certificateKey, customerID, paymentIntentID string) (bool, error)
}

// Renderer produces the certificate PDF.
type Renderer interface {
	Render(d certificate.Data) ([]byte, error)
}

// CertificateStore persists rendered certificates and returns a retrievable key.
type CertificateStore interface {
	PutCertificate(ctx context.Context, registrationNumber string, pdf []byte) (string, error)
}

// WelcomeSender dispatches the welcome email.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, w notify.Welcome) (string, error)
}

// EmailLogger appends to the best-effort notification log.
type EmailLogger interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// BestEffort reports the outcome of a non-authoritative side effect. Its Err
// never propagates into the workflow's own error.
type BestEffort struct {
	Attempted bool  `json:"attempted"`
	Err       error `json:"-"`
}

// OK reports whether the side effect was attempted and succeeded.
func (b BestEffort) OK() bool { return b.Attempted && b.Err == nil }

// Result is the authoritative workflow outcome plus its best-effort side
// effects, kept separate so callers and tests can assert on both.
type Result struct {
	RegistrationNumber string
	// Completed is true when this invocation performed the transition.
	// False means the record was already completed (webhook redelivery or a
	// lost race), which is a successful no-op.
	Completed      bool
	CertificateKey string
	Notification   BestEffort
	AuditLog       BestEffort
}

// Workflow orchestrates record store, renderer, certificate storage and
// notification. All dependencies are injected; there is no package state.
type Workflow struct {
	records  RecordStore
	renderer Renderer
	certs    CertificateStore
	sender   WelcomeSender
	emailLog EmailLogger
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorkflow creates a fulfillment workflow.
func NewWorkflow(records RecordStore, renderer Renderer, certs CertificateStore, sender WelcomeSender, emailLog EmailLogger, baseURL string, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		records:  records,
		renderer: renderer,
		certs:    certs,
		sender:   sender,
		emailLog: emailLog,
		baseURL:  baseURL,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCheckoutCompleted processes one confirmed payment event.
//
// Order matters: the certificate is rendered and stored before the guarded
// status write, and the status write happens before the welcome email. A
// crash after the write but before the email can only lose the email (a
// support-recoverable state); reversing the order could send duplicates on
// redelivery.
func (w *Workflow) HandleCheckoutCompleted(ctx context.Context, ev PaymentEvent) (*Result, error) {
	if ev.RegistrationNumber == "" {
		return nil, ErrMalformedEvent
	}

	reg, err := w.records.GetByNumber(ctx, ev.RegistrationNumber)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, ev.RegistrationNumber)
		}
		return nil, fmt.Errorf("load registration %s: %w", ev.RegistrationNumber, err)
	}

	// Idempotency short-circuit: a completed record means a previous
	// delivery already rendered, stored and notified.
	if reg.Status == models.RegistrationStatusCompleted {
		w.logger.Info("registration already completed, skipping",
			zap.String("registration_number", reg.RegistrationNumber))
		res := &Result{RegistrationNumber: reg.RegistrationNumber}
		if reg.CertificateKey != nil {
			res.CertificateKey = *reg.CertificateKey
		}
		return res, nil
	}

	pdf, err := w.renderer.Render(certificate.Data{
		RegistrationNumber: reg.RegistrationNumber,
		DogName:            reg.DogName,
		OwnerName:          reg.OwnerName,
		Breed:              reg.Breed,
		Color:              reg.Color,
		Description:        reg.Description,
		IssuedAt:           w.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate for %s: %w", reg.RegistrationNumber, err)
	}

	key, err := w.certs.PutCertificate(ctx, reg.RegistrationNumber, pdf)
	if err != nil {
		return nil, fmt.Errorf("store certificate for %s: %w", reg.RegistrationNumber, err)
	}

	won, err := w.records.Complete(ctx, reg.RegistrationNumber, key, ev.CustomerID, ev.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("complete registration %s: %w", reg.RegistrationNumber, err)
	}
	if !won {
		// A concurrent delivery won the guarded update; it owns the
		// notification. The duplicate upload above overwrote the same
		// deterministic key, so only one certificate object exists.
		w.logger.Info("lost completion race, skipping notification",
			zap.String("registration_number", reg.RegistrationNumber))
		return &Result{RegistrationNumber: reg.RegistrationNumber, CertificateKey: key}, nil
	}

	res := &Result{
		RegistrationNumber: reg.RegistrationNumber,
		Completed:          true,
		CertificateKey:     key,
	}

	to := reg.OwnerEmail
	if to == "" {
		to = ev.CustomerEmail
	}
	welcome := notify.Welcome{
		To:                 to,
		OwnerName:          reg.OwnerName,
		DogName:            reg.DogName,
		RegistrationNumber: reg.RegistrationNumber,
		CertificateURL:     fmt.Sprintf("%s/registrations/%s/certificate", w.baseURL, reg.RegistrationNumber),
		ProfileURL:         fmt.Sprintf("%s/registrations/%s", w.baseURL, reg.RegistrationNumber),
	}
	res.Notification.Attempted = true
	msgID, sendErr := w.sender.SendWelcome(ctx, welcome)
	if sendErr != nil {
		// Swallowed on purpose: a missed welcome email is recoverable by
		// support, reverting a completed record is not.
		res.Notification.Err = sendErr
		w.logger.Error("welcome email failed",
			zap.String("registration_number", reg.RegistrationNumber),
			zap.Error(sendErr))
	}

	res.AuditLog.Attempted = true
	entry := &models.EmailLog{
		RegistrationNumber: &res.RegistrationNumber,
		EmailType:          models.EmailTypeWelcome,
		RecipientEmail:     to,
		Subject:            fmt.Sprintf("Your WCU registration %s is complete", reg.RegistrationNumber),
		Status:             models.EmailLogStatusSent,
		ProviderMessageID:  msgID,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if logErr := w.emailLog.Create(ctx, entry); logErr != nil {
		res.AuditLog.Err = logErr
		w.logger.Warn("email log insert failed",
			zap.String("registration_number", reg.RegistrationNumber),
			zap.Error(logErr))
	}

	w.logger.Info("registration fulfilled",
		zap.String("registration_number", reg.RegistrationNumber),
		zap.String("certificate_key", key),
		zap.Bool("welcome_sent", res.Notification.OK()))
	return res, nil
}
