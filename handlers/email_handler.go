package handlers

import (
	"context"
	"net/http"

	"github.com/ninehub/storefront/middleware"
	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/utils"
	"go.uber.org/zap"
)

// OrderEmailSender sends order-confirmation emails
type OrderEmailSender interface {
	SendOrderEmail(ctx context.Context, req *models.OrderEmailRequest) error
}

// SendOrderEmailResponse is the success body of the order email endpoint
type SendOrderEmailResponse struct {
	Message string `json:"message"`
}

// EmailHandler handles email-related HTTP requests
type EmailHandler struct {
	sender OrderEmailSender
	logger *zap.Logger
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(sender OrderEmailSender, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		sender: sender,
		logger: logger,
	}
}

// HandleSendOrderEmail handles POST /api/email/send-order-email
func (h *EmailHandler) HandleSendOrderEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req models.OrderEmailRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid order email body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.sender.SendOrderEmail(ctx, &req); err != nil {
		_ = utils.WriteInternalServerError(w, "Failed to send email: "+err.Error())
		return
	}

	_ = utils.WriteOK(w, SendOrderEmailResponse{Message: "Order confirmation email sent!"})
}
