package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CurrentStatus string `json:"currentStatus,omitempty"`
	ProductID     string `json:"productId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeAddressNotFound   = "ADDRESS_NOT_FOUND"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeLedgerConflict    = "LEDGER_CONFLICT"
	ErrCodeRequestInProgress = "REQUEST_IN_PROGRESS"
	ErrCodeStorage           = "STORAGE_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is a business-level failure carrying a stable code.
// Two domain errors match under errors.Is when their codes are equal, so
// callers can compare against the sentinels below even when the concrete
// error carries extra context such as the offending product.
type DomainError struct {
	Code    string
	Message string

	// ProductID is set for stock related failures.
	ProductID string
	// CurrentStatus is set for rejected order transitions.
	CurrentStatus OrderStatus

	Err error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidRequest    = NewDomainError(ErrCodeInvalidRequest, "Invalid request")
	ErrAddressNotFound   = NewDomainError(ErrCodeAddressNotFound, "Shipping address not found")
	ErrEmptyCart         = NewDomainError(ErrCodeEmptyCart, "Order must contain at least one item")
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock")
	ErrInsufficientFunds = NewDomainError(ErrCodeInsufficientFunds, "Insufficient wallet balance")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Order status transition not allowed")
	ErrLedgerConflict    = NewDomainError(ErrCodeLedgerConflict, "Stock ledger guard rejected the update")
	ErrStorage           = NewDomainError(ErrCodeStorage, "Storage failure")
	ErrRequestInProgress = NewDomainError(ErrCodeRequestInProgress, "A request with this idempotency key is still being processed")
)

// NewInvalidRequestError describes a malformed request.
func NewInvalidRequestError(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInsufficientStockError names the product whose availability was too low.
func NewInsufficientStockError(productID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInsufficientStock,
		Message:   fmt.Sprintf("Insufficient stock for product %s", productID),
		ProductID: productID,
	}
}

// NewProductNotFoundError names the missing product.
func NewProductNotFoundError(productID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeProductNotFound,
		Message:   fmt.Sprintf("Product %s not found", productID),
		ProductID: productID,
	}
}

// NewLedgerConflictError reports a release/commit whose guard did not hold.
func NewLedgerConflictError(op, productID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeLedgerConflict,
		Message:   fmt.Sprintf("Stock %s rejected for product %s", op, productID),
		ProductID: productID,
	}
}

// NewTransitionError reports a rejected status change along with the current status.
func NewTransitionError(from, to OrderStatus) *DomainError {
	return &DomainError{
		Code:          ErrCodeInvalidTransition,
		Message:       fmt.Sprintf("Cannot move order from %s to %s", from, to),
		CurrentStatus: from,
	}
}

// NewStorageError wraps an infrastructure failure. Domain errors pass through unchanged.
func NewStorageError(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	return &DomainError{
		Code:    ErrCodeStorage,
		Message: "Storage failure",
		Err:     err,
	}
}
