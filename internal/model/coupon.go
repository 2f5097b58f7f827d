package model

import "time"

// DiscountType selects how a coupon's value is interpreted.
type DiscountType string

const (
	// DiscountPercentage treats DiscountValue as a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat treats DiscountValue as an amount in minor units.
	DiscountFlat DiscountType = "flat"
)

// Coupon is a promotional code. UsedBy is append-only; one entry is added per
// order that consumed the coupon.
type Coupon struct {
	Code          string       `json:"code" db:"code"`
	DiscountType  DiscountType `json:"discountType" db:"discount_type"`
	DiscountValue float64      `json:"discountValue" db:"discount_value"`
	MinCartValue  *int64       `json:"minCartValue,omitempty" db:"min_cart_value"`
	MaxDiscount   *int64       `json:"maxDiscount,omitempty" db:"max_discount"`
	ValidFrom     *time.Time   `json:"validFrom,omitempty" db:"valid_from"`
	ValidTo       *time.Time   `json:"validTo,omitempty" db:"valid_to"`
	UsageLimit    *int         `json:"usageLimit,omitempty" db:"usage_limit"`
	UsedBy        []string     `json:"usedBy" db:"used_by"`
	Active        bool         `json:"active" db:"active"`
}
