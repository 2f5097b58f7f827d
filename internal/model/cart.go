package model

import "time"

// CartItem is a persisted cart line for a user.
type CartItem struct {
	UserID     string     `json:"-" db:"user_id"`
	ProductID  string     `json:"productId" db:"product_id"`
	Quantity   int        `json:"quantity" db:"quantity"`
	Attributes Attributes `json:"attributes,omitempty" db:"attributes"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`

	// Name and UnitPrice are filled from the catalogue when the cart is read.
	Name      string `json:"name,omitempty" db:"-"`
	UnitPrice int64  `json:"unitPrice,omitempty" db:"-"`
}

// Cart is a user's cart priced at current catalogue prices. Prices are
// captured again when the cart is turned into an order.
type Cart struct {
	Items    []CartItem `json:"items"`
	SubTotal int64      `json:"subTotal"`
}

// CartItemRequest adds or replaces a cart line. A zero quantity removes it.
type CartItemRequest struct {
	ProductID  string     `json:"productId"`
	Quantity   int        `json:"quantity"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Address is the subset of a shipping address the order flow needs.
type Address struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"userId" db:"user_id"`
	Line1      string `json:"line1" db:"line1"`
	City       string `json:"city" db:"city"`
	PostalCode string `json:"postalCode" db:"postal_code"`
	Country    string `json:"country" db:"country"`
}
