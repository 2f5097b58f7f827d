package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kartcore/internal/cache"
	"kartcore/internal/model"
	"kartcore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxIdempotencyKeyLength = 128

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service     service.OrderService
	idempotency cache.IdempotencyStore
	logger      zerolog.Logger
}

// NewOrderHandler creates a new order handler. A nil store disables
// Idempotency-Key support.
func NewOrderHandler(service service.OrderService, idempotency cache.IdempotencyStore, logger zerolog.Logger) *OrderHandler {
	if idempotency == nil {
		idempotency = cache.NoopIdempotencyStore{}
	}
	return &OrderHandler{
		service:     service,
		idempotency: idempotency,
		logger:      logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	req.UserID = user

	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLength {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidRequest, "idempotency key is too long", h.logger)
		return
	}

	if key != "" {
		number, claimed, err := h.idempotency.Claim(ctx, user, key)
		switch {
		case errors.Is(err, model.ErrRequestInProgress):
			writeDomainError(w, err, h.logger)
			return
		case err != nil:
			// Placement still works without the cache; only retries lose protection.
			h.logger.Warn().Err(err).Str("user_id", user).Msg("idempotency store unavailable")
			key = ""
		case !claimed:
			h.replay(w, r, number)
			return
		}
	}

	order, err := h.service.PlaceOrder(ctx, &req)
	if err != nil {
		if key != "" {
			if aerr := h.idempotency.Abandon(context.WithoutCancel(ctx), user, key); aerr != nil {
				h.logger.Warn().Err(aerr).Msg("failed to release idempotency key")
			}
		}
		writeDomainError(w, err, h.logger)
		return
	}

	if key != "" {
		if cerr := h.idempotency.Complete(context.WithoutCancel(ctx), user, key, order.Number); cerr != nil {
			h.logger.Warn().Err(cerr).Str("order_id", order.Number).Msg("failed to remember idempotency key")
		}
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) replay(w http.ResponseWriter, r *http.Request, number string) {
	order, err := h.service.GetOrder(r.Context(), number)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	h.logger.Debug().Str("order_id", number).Msg("idempotent replay")
	w.Header().Set(HeaderIdempotentReplay, "true")
	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{orderId} requests. Orders of other users
// are reported as not found.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderId")

	order, err := h.service.GetOrder(r.Context(), number)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if user := strings.TrimSpace(r.Header.Get(HeaderUserID)); user != "" && user != order.UserID {
		writeDomainError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/admin/orders/{orderId}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderId")

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), number, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
