package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusCreated:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true, OrderStatusRefunded: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// PaymentMethod is how the customer settles the order.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodGateway PaymentMethod = "gateway"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodWallet, PaymentMethodGateway:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// StockState records what the ledger currently holds on behalf of an order.
type StockState string

const (
	// StockStateReserved means units are held in products.reserved.
	StockStateReserved StockState = "reserved"
	// StockStateCommitted means units were deducted from products.stock.
	StockStateCommitted StockState = "committed"
	// StockStateReleased means the reservation was returned without deduction.
	StockStateReleased StockState = "released"
	// StockStateRestocked means committed units were returned to stock.
	StockStateRestocked StockState = "restocked"
)

// Coupon rejection reasons recorded on an order when a supplied code yields no discount.
const (
	CouponRejectedNotFound     = "not_found"
	CouponRejectedInactive     = "inactive"
	CouponRejectedNotStarted   = "not_started"
	CouponRejectedExpired      = "expired"
	CouponRejectedLimitReached = "usage_limit_reached"
	CouponRejectedBelowMinimum = "below_min_cart_value"
)

// Totals are derived amounts in minor units. They are never mutated independently.
type Totals struct {
	SubTotal   int64 `json:"subTotal"`
	Discount   int64 `json:"discount"`
	Tax        int64 `json:"tax"`
	Shipping   int64 `json:"shipping"`
	GrandTotal int64 `json:"grandTotal"`
}

// Payment is the settlement record embedded in an order.
type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID *string       `json:"transactionId,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}

// Shipment carries courier details once an order is handed over.
type Shipment struct {
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID   `json:"-" db:"id"`
	Number          string      `json:"orderId" db:"number"`
	UserID          string      `json:"userId" db:"user_id"`
	AddressID       string      `json:"addressId" db:"address_id"`
	Status          OrderStatus `json:"status" db:"status"`
	Totals          Totals      `json:"totals"`
	CouponCode      *string     `json:"couponCode,omitempty" db:"coupon_code"`
	CouponRejection *string     `json:"couponRejection,omitempty" db:"coupon_rejection"`
	Payment         Payment     `json:"payment"`
	StockState      StockState  `json:"stockState" db:"stock_state"`
	Notes           string      `json:"notes,omitempty" db:"notes"`
	Shipment        *Shipment   `json:"shipment,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order. UnitPrice is the catalogue
// price captured when stock was reserved and never follows later price changes.
type OrderItem struct {
	ID         uuid.UUID  `json:"-" db:"id"`
	OrderID    uuid.UUID  `json:"-" db:"order_id"`
	ProductID  string     `json:"productId" db:"product_id"`
	Name       string     `json:"name" db:"name"`
	Quantity   int        `json:"quantity" db:"quantity"`
	UnitPrice  int64      `json:"unitPrice" db:"unit_price"`
	Attributes Attributes `json:"attributes,omitempty" db:"attributes"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// PlaceOrderRequest represents the request payload for placing an order.
// When Items is empty the user's persisted cart is used.
type PlaceOrderRequest struct {
	UserID        string             `json:"-"`
	AddressID     string             `json:"addressId"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
	Items         []OrderItemRequest `json:"items,omitempty"`
	CouponCode    *string            `json:"couponCode,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID  string     `json:"productId"`
	Quantity   int        `json:"quantity"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// StatusUpdateRequest is the admin payload for moving an order through its lifecycle.
type StatusUpdateRequest struct {
	Status   OrderStatus `json:"status"`
	Shipment *Shipment   `json:"shipment,omitempty"`
}

// PaymentWebhookStatus is the outcome reported by the payment gateway.
type PaymentWebhookStatus string

const (
	WebhookStatusSuccess PaymentWebhookStatus = "success"
	WebhookStatusFailure PaymentWebhookStatus = "failure"
)

// PaymentWebhook is the gateway notification payload.
type PaymentWebhook struct {
	OrderID       string               `json:"orderId"`
	Status        PaymentWebhookStatus `json:"status"`
	TransactionID string               `json:"transactionId"`
}

// WebhookOutcome describes what a payment notification changed.
type WebhookOutcome string

const (
	// WebhookApplied means the notification settled or failed the payment.
	WebhookApplied WebhookOutcome = "applied"
	// WebhookDuplicate means the same outcome was already recorded.
	WebhookDuplicate WebhookOutcome = "duplicate"
	// WebhookIgnored means the order can no longer accept the notification.
	WebhookIgnored WebhookOutcome = "ignored"
)

// WebhookAck is returned to the gateway for every accepted notification.
type WebhookAck struct {
	Received      bool           `json:"received"`
	OrderID       string         `json:"orderId"`
	Outcome       WebhookOutcome `json:"outcome"`
	PaymentStatus PaymentStatus  `json:"paymentStatus,omitempty"`
}
