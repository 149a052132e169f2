package registry

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/queue"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/storage"
)

// UpdateTokenTTL is how long an update link stays valid.
const UpdateTokenTTL = 24 * time.Hour

// CreateRequest is the body for POST /registrations.
type CreateRequest struct {
	DogName     string `json:"dog_name" binding:"required"`
	Breed       string `json:"breed"`
	Color       string `json:"color"`
	Description string `json:"description"`
	OwnerName   string `json:"owner_name" binding:"required"`
	OwnerEmail  string `json:"owner_email" binding:"required,email"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo    *Repository
	certs   *storage.S3
	queue   *queue.Queue
	baseURL string
	logger  *zap.Logger
}

// NewHandler creates a registry handler.
func NewHandler(repo *Repository, certs *storage.S3, q *queue.Queue, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, certs: certs, queue: q, baseURL: baseURL, logger: logger}
}

// Create handles POST /registrations. Creates a pending record with its
// registration number assigned; payment comes later via checkout.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg := &models.Registration{
		DogName:     req.DogName,
		Breed:       req.Breed,
		Color:       req.Color,
		Description: req.Description,
		OwnerName:   req.OwnerName,
		OwnerEmail:  req.OwnerEmail,
	}
	if err := h.repo.Create(c.Request.Context(), reg); err != nil {
		h.logger.Error("create registration failed", zap.Error(err))
		response.Internal(c, "failed to create registration")
		return
	}

	h.logger.Info("registration created",
		zap.String("registration_number", reg.RegistrationNumber),
		zap.String("dog_name", reg.DogName))
	response.Created(c, gin.H{
		"id":                  reg.ID,
		"registration_number": reg.RegistrationNumber,
		"status":              reg.Status,
	})
}

// Get handles GET /registrations/:number. Public profile lookup.
func (h *Handler) Get(c *gin.Context) {
	reg, err := h.repo.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, gin.H{
		"registration_number": reg.RegistrationNumber,
		"dog_name":            reg.DogName,
		"breed":               reg.Breed,
		"color":               reg.Color,
		"description":         reg.Description,
		"status":              reg.Status,
		"certificate_ready":   reg.CertificateKey != nil,
		"created_at":          reg.CreatedAt,
	})
}

// Certificate handles GET /registrations/:number/certificate. Streams the
// stored PDF; ?redirect=1 returns a 302 to a pre-signed URL instead.
func (h *Handler) Certificate(c *gin.Context) {
	number := c.Param("number")
	reg, err := h.repo.GetByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	if reg.CertificateKey == nil {
		response.NotFound(c, "certificate not available yet")
		return
	}

	if c.Query("redirect") == "1" {
		url, err := h.certs.PresignCertificateURL(c.Request.Context(), *reg.CertificateKey)
		if err != nil {
			h.logger.Error("presign certificate failed", zap.String("registration_number", number), zap.Error(err))
			response.Internal(c, "failed to generate certificate link")
			return
		}
		c.Redirect(http.StatusFound, url)
		return
	}

	body, length, err := h.certs.GetCertificate(c.Request.Context(), *reg.CertificateKey)
	if err != nil {
		h.logger.Error("fetch certificate failed", zap.String("registration_number", number), zap.Error(err))
		response.Internal(c, "failed to fetch certificate")
		return
	}
	defer body.Close()
	c.DataFromReader(http.StatusOK, length, storage.ContentTypePDF, body, map[string]string{
		"Content-Disposition": `attachment; filename="` + number + `.pdf"`,
	})
}

// RequestUpdate handles POST /registrations/:number/update-request. Issues a
// single-use 24h token and emails the update link to the owner of record.
// The token is never returned in the response.
func (h *Handler) RequestUpdate(c *gin.Context) {
	number := c.Param("number")
	reg, err := h.repo.GetByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}

	tokenStr, err := generateToken()
	if err != nil {
		h.logger.Error("generate update token failed", zap.Error(err))
		response.Internal(c, "failed to create update link")
		return
	}
	tok := &models.UpdateToken{
		RegistrationID: reg.ID,
		Token:          tokenStr,
		ExpiresAt:      time.Now().Add(UpdateTokenTTL),
	}
	if err := h.repo.CreateUpdateToken(c.Request.Context(), tok); err != nil {
		h.logger.Error("store update token failed", zap.String("registration_number", number), zap.Error(err))
		response.Internal(c, "failed to create update link")
		return
	}

	subject, html, err := notify.RenderUpdateLink(notify.UpdateLink{
		To:                 reg.OwnerEmail,
		OwnerName:          reg.OwnerName,
		RegistrationNumber: reg.RegistrationNumber,
		UpdateURL:          h.baseURL + "/profile-updates?token=" + tokenStr,
		ExpiresAt:          tok.ExpiresAt,
	})
	if err != nil {
		response.Internal(c, "failed to render update email")
		return
	}
	if err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:          models.EmailTypeUpdateLink,
		RegistrationNumber: &reg.RegistrationNumber,
		RecipientEmail:     reg.OwnerEmail,
		Subject:            subject,
		BodyHTML:           html,
	}); err != nil {
		h.logger.Error("enqueue update email failed", zap.String("registration_number", number), zap.Error(err))
		response.Internal(c, "failed to queue update email")
		return
	}

	response.OK(c, gin.H{
		"message":    "update link sent to the owner email on record",
		"expires_at": tok.ExpiresAt,
	})
}

// SubmitUpdateRequest is the body for POST /profile-updates.
type SubmitUpdateRequest struct {
	Token       string `json:"token" binding:"required"`
	OwnerName   string `json:"owner_name" binding:"required"`
	OwnerEmail  string `json:"owner_email" binding:"required,email"`
	Breed       string `json:"breed"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// SubmitUpdate handles POST /profile-updates. Consumes the single-use token
// and applies the owner-editable fields.
func (h *Handler) SubmitUpdate(c *gin.Context) {
	var req SubmitUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tok, err := h.repo.GetUpdateToken(c.Request.Context(), req.Token)
	if err != nil {
		response.NotFound(c, "invalid update token")
		return
	}
	if time.Now().After(tok.ExpiresAt) {
		response.BadRequest(c, "update token expired")
		return
	}

	// Consuming the token before the write keeps it single-use even under
	// concurrent submissions.
	used, err := h.repo.MarkTokenUsed(c.Request.Context(), tok.ID)
	if err != nil {
		response.Internal(c, "failed to consume token")
		return
	}
	if !used {
		response.Conflict(c, "update token already used")
		return
	}

	if err := h.repo.ApplyUpdate(c.Request.Context(), tok.RegistrationID, req.OwnerName, req.OwnerEmail, req.Breed, req.Color, req.Description); err != nil {
		h.logger.Error("apply update failed", zap.String("registration_id", tok.RegistrationID.String()), zap.Error(err))
		response.Internal(c, "failed to apply update")
		return
	}

	response.OK(c, gin.H{"updated": true})
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}
