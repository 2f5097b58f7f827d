package model

import "time"

// Product represents a catalogue entry together with its stock counters.
// Prices are minor currency units.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Category  string    `json:"category" db:"category"`
	Stock     int       `json:"stock" db:"stock"`
	Reserved  int       `json:"reserved" db:"reserved"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Available returns the units that can still be reserved.
func (p Product) Available() int {
	return p.Stock - p.Reserved
}

// ProductResponse is the catalogue view of a product.
type ProductResponse struct {
	Product
	Available int `json:"available"`
}

// NewProductResponse builds the catalogue view.
func NewProductResponse(p Product) ProductResponse {
	return ProductResponse{Product: p, Available: p.Available()}
}

// ReservationDrift reports a product whose reserved counter disagrees with the
// quantities held by orders that still own a reservation.
type ReservationDrift struct {
	ProductID string `json:"productId"`
	Reserved  int    `json:"reserved"`
	Expected  int    `json:"expected"`
}
