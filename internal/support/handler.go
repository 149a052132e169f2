package support

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
)

// ReplySender dispatches admin replies.
type ReplySender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// Handler handles admin inbox HTTP endpoints. Mount behind JWT + admin role.
type Handler struct {
	repo     *Repository
	sender   ReplySender
	emailLog *notify.LogRepository
	logger   *zap.Logger
}

// NewHandler creates an admin inbox handler.
func NewHandler(repo *Repository, sender ReplySender, emailLog *notify.LogRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, sender: sender, emailLog: emailLog, logger: logger}
}

// List handles GET /admin/inbox?status=unread.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.SupportMessageStatusUnread && status != models.SupportMessageStatusReplied {
		response.BadRequest(c, "invalid status filter")
		return
	}
	msgs, err := h.repo.List(c.Request.Context(), status, 100)
	if err != nil {
		h.logger.Error("list support messages failed", zap.Error(err))
		response.Internal(c, "failed to load inbox")
		return
	}
	response.OK(c, msgs)
}

// Get handles GET /admin/inbox/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	msg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "message not found")
		return
	}
	response.OK(c, msg)
}

// ReplyRequest is the body for POST /admin/inbox/:id/reply.
type ReplyRequest struct {
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}

// Reply handles POST /admin/inbox/:id/reply. Sends the composed email to the
// original sender and marks the message replied. The email log write is
// best-effort.
func (h *Handler) Reply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	msg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "message not found")
		return
	}
	if msg.Status == models.SupportMessageStatusReplied {
		response.Conflict(c, "message already replied")
		return
	}

	msgID, err := h.sender.Send(c.Request.Context(), msg.FromAddress, req.Subject, req.HTML)
	if err != nil {
		h.logger.Error("send reply failed", zap.String("message_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to send reply")
		return
	}

	if _, err := h.repo.MarkReplied(c.Request.Context(), id); err != nil {
		// The reply went out; surface the stale status rather than failing.
		h.logger.Error("mark replied failed", zap.String("message_id", id.String()), zap.Error(err))
	}

	entry := &models.EmailLog{
		RegistrationNumber: msg.RegistrationNumber,
		EmailType:          models.EmailTypeSupportReply,
		RecipientEmail:     msg.FromAddress,
		Subject:            req.Subject,
		Status:             models.EmailLogStatusSent,
		ProviderMessageID:  msgID,
	}
	if err := h.emailLog.Create(c.Request.Context(), entry); err != nil {
		h.logger.Warn("email log insert failed", zap.Error(err))
	}

	response.OK(c, gin.H{"sent": true, "provider_message_id": msgID})
}

// Emails handles GET /admin/emails?limit=50, newest first.
func (h *Handler) Emails(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	logs, err := h.emailLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
