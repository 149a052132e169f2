package support

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
)

const maxWebhookBody = 1 << 20 // 1MB; inbound mail bodies can be large

// WebhookHandler receives inbound-email webhooks from the email provider.
type WebhookHandler struct {
	workflow *Workflow
	logger   *zap.Logger
}

// NewWebhookHandler creates an inbound email webhook handler.
func NewWebhookHandler(workflow *Workflow, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{workflow: workflow, logger: logger}
}

// HandleInboundEmail handles POST /webhooks/inbound-email. Non-matching
// event types are acknowledged with 200; a persist failure is 500 so the
// provider redelivers (no partial side effect happened).
// TODO: verify the provider's svix signature headers once signing is enabled
// on the inbound endpoint.
func (h *WebhookHandler) HandleInboundEmail(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "read payload: "+err.Error())
		return
	}

	var ev InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Warn("unparseable inbound email payload", zap.Error(err))
		response.BadRequest(c, "invalid payload")
		return
	}

	msg, handled, err := h.workflow.HandleInbound(c.Request.Context(), ev, raw)
	if err != nil {
		h.logger.Error("store inbound email failed, provider will retry", zap.Error(err))
		response.Internal(c, "failed to store message")
		return
	}
	if !handled {
		response.OK(c, gin.H{"received": true, "ignored": ev.Type})
		return
	}

	response.OK(c, gin.H{"received": true, "message_id": msg.ID})
}
