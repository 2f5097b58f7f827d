package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
)

const (
	// HeaderUserID carries the authenticated user resolved by the gateway in front of the API.
	HeaderUserID = "X-User-ID"
	// HeaderIdempotencyKey makes order placement safe to retry.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay marks a response served from a previous request.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxBodyBytes = 1 << 20
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error_code", code).Int("status", status).Msg(message)
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a service error onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status := statusFor(de.Code)
	resp := model.ErrorResponse{
		Error:         de.Code,
		Message:       de.Message,
		ProductID:     de.ProductID,
		CurrentStatus: string(de.CurrentStatus),
	}

	if status >= http.StatusInternalServerError {
		// Storage details stay in the logs.
		logger.Error().Err(err).Str("error_code", de.Code).Msg("request failed")
		resp.Message = "internal server error"
	} else {
		logger.Warn().Str("error_code", de.Code).Int("status", status).Msg(de.Message)
	}

	writeJSON(w, status, resp)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON,
		model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeEmptyCart:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case model.ErrCodeAddressNotFound,
		model.ErrCodeProductNotFound,
		model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInsufficientStock,
		model.ErrCodeInvalidTransition,
		model.ErrCodeLedgerConflict,
		model.ErrCodeRequestInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

// decodeLenientJSON is decodeJSON for third-party callers whose payloads
// grow fields we do not read.
func decodeLenientJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// userID returns the caller's id or writes 401.
func userID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing "+HeaderUserID+" header", logger)
		return "", false
	}
	return id, true
}
