package handler

import (
	"net/http"

	"kartcore/internal/model"
	"kartcore/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler exposes the caller's cart.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.Get(r.Context(), user)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// PutItem handles PUT /api/cart/items.
func (h *CartHandler) PutItem(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cart, err := h.service.PutItem(r.Context(), user, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
