package payments

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/registry"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
)

// SessionCreator abstracts the checkout adapter for handler tests.
type SessionCreator interface {
	CreateSession(ctx context.Context, registrationNumber, ownerEmail, dogName string) (url, sessionID string, err error)
}

// Handler handles checkout HTTP endpoints.
type Handler struct {
	repo     *registry.Repository
	checkout SessionCreator
	logger   *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(repo *registry.Repository, checkout SessionCreator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, checkout: checkout, logger: logger}
}

// CreateCheckout handles POST /registrations/:number/checkout. Returns the
// hosted checkout redirect URL for a pending registration.
func (h *Handler) CreateCheckout(c *gin.Context) {
	number := c.Param("number")
	reg, err := h.repo.GetByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.logger.Error("load registration failed", zap.String("registration_number", number), zap.Error(err))
		response.Internal(c, "failed to load registration")
		return
	}
	if reg.Status == models.RegistrationStatusCompleted {
		response.Conflict(c, "registration already paid")
		return
	}

	url, sessionID, err := h.checkout.CreateSession(c.Request.Context(), reg.RegistrationNumber, reg.OwnerEmail, reg.DogName)
	if err != nil {
		h.logger.Error("create checkout session failed", zap.String("registration_number", number), zap.Error(err))
		response.Internal(c, "failed to create checkout session")
		return
	}

	if err := h.repo.SetCheckoutSession(c.Request.Context(), reg.RegistrationNumber, sessionID); err != nil {
		// The session exists either way; metadata carries the correlation.
		h.logger.Warn("store checkout session id failed", zap.String("registration_number", number), zap.Error(err))
	}

	response.OK(c, gin.H{
		"checkout_url":        url,
		"session_id":          sessionID,
		"registration_number": reg.RegistrationNumber,
	})
}
