// Package payments creates Stripe hosted checkout sessions for the fixed
// registration fee.
package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/config"
	"github.com/Mike3rd/world-canine-union-sub001/internal/fulfillment"
)

// Checkout wraps the Stripe client. Constructed once at startup and injected;
// no package-level key state.
type Checkout struct {
	api    *client.API
	cfg    config.StripeConfig
	logger *zap.Logger
}

// NewCheckout creates a Stripe checkout adapter.
func NewCheckout(cfg config.StripeConfig, logger *zap.Logger) *Checkout {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Checkout{api: api, cfg: cfg, logger: logger}
}

// CreateSession creates a hosted checkout session for one registration. The
// registration number is embedded in session metadata so the webhook can
// correlate the payment back to the record.
func (p *Checkout) CreateSession(ctx context.Context, registrationNumber, ownerEmail, dogName string) (url, sessionID string, err error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(ownerEmail),
		SuccessURL:    stripe.String(p.cfg.SuccessURL),
		CancelURL:     stripe.String(p.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.cfg.Currency),
					UnitAmount: stripe.Int64(p.cfg.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.cfg.ProductName),
						Description: stripe.String(fmt.Sprintf("Registration of %s (%s)", dogName, registrationNumber)),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(fulfillment.MetadataRegistrationNumber, registrationNumber)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	p.logger.Info("checkout session created",
		zap.String("registration_number", registrationNumber),
		zap.String("session_id", sess.ID))
	return sess.URL, sess.ID, nil
}
