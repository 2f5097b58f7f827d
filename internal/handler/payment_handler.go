package handler

import (
	"net/http"

	"kartcore/internal/model"
	"kartcore/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler receives payment gateway callbacks.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Webhook handles POST /api/payments/webhook. Every well-formed callback for
// a known order is acknowledged with 200, including replays; the gateway
// retries anything else. Fields the gateway adds beyond the ones we read are
// ignored.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var hook model.PaymentWebhook
	if err := decodeLenientJSON(w, r, &hook); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid webhook payload", h.logger)
		return
	}

	ack, err := h.service.HandlePaymentWebhook(r.Context(), &hook)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ack)
}
