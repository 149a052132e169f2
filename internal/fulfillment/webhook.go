package fulfillment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
)

// MetadataRegistrationNumber is the checkout session metadata key correlating
// a payment back to its registration record.
const MetadataRegistrationNumber = "registration_number"

const maxWebhookBody = 1 << 16 // 64KB, Stripe events are small

// WebhookHandler receives Stripe webhook callbacks and drives the workflow.
type WebhookHandler struct {
	workflow      *Workflow
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates a Stripe webhook handler.
func NewWebhookHandler(workflow *Workflow, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{workflow: workflow, webhookSecret: webhookSecret, logger: logger}
}

// HandleStripe handles POST /webhooks/stripe. Signature failures are 400;
// terminal event problems (malformed, unknown registration) are acknowledged
// with 200 so Stripe stops redelivering; transient failures are 500 so it
// retries.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "read payload: "+err.Error())
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("stripe signature verification failed", zap.Error(err))
		response.BadRequest(c, "invalid signature")
		return
	}

	if event.Type != "checkout.session.completed" {
		response.OK(c, gin.H{"received": true, "ignored": string(event.Type)})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session failed", zap.String("event_id", event.ID), zap.Error(err))
		response.BadRequest(c, "invalid event payload")
		return
	}

	ev := PaymentEventFromSession(&sess)
	res, err := h.workflow.HandleCheckoutCompleted(c.Request.Context(), ev)
	switch {
	case errors.Is(err, ErrMalformedEvent):
		h.logger.Error("dropping malformed payment event", zap.String("event_id", event.ID), zap.String("session_id", ev.SessionID))
		response.OK(c, gin.H{"received": true, "dropped": "missing registration_number"})
		return
	case errors.Is(err, ErrRecordNotFound):
		h.logger.Error("dropping payment event for unknown registration",
			zap.String("event_id", event.ID),
			zap.String("registration_number", ev.RegistrationNumber))
		response.OK(c, gin.H{"received": true, "dropped": "registration not found"})
		return
	case err != nil:
		h.logger.Error("fulfillment failed, provider will retry",
			zap.String("event_id", event.ID),
			zap.String("registration_number", ev.RegistrationNumber),
			zap.Error(err))
		response.Internal(c, "fulfillment failed")
		return
	}

	response.OK(c, gin.H{
		"received":            true,
		"registration_number": res.RegistrationNumber,
		"completed":           res.Completed,
	})
}

// PaymentEventFromSession maps a Stripe checkout session to the
// provider-agnostic event the workflow consumes.
func PaymentEventFromSession(sess *stripe.CheckoutSession) PaymentEvent {
	ev := PaymentEvent{
		SessionID:          sess.ID,
		RegistrationNumber: sess.Metadata[MetadataRegistrationNumber],
		PaymentStatus:      string(sess.PaymentStatus),
	}
	if sess.Customer != nil {
		ev.CustomerID = sess.Customer.ID
	}
	if sess.CustomerDetails != nil {
		ev.CustomerEmail = sess.CustomerDetails.Email
		ev.CustomerName = sess.CustomerDetails.Name
	}
	if sess.PaymentIntent != nil {
		ev.PaymentIntentID = sess.PaymentIntent.ID
	}
	return ev
}
