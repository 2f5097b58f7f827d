package coupon

import (
	"time"

	"kartcore/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type evaluator struct{}

// NewEvaluator returns the default coupon evaluator.
func NewEvaluator() Evaluator {
	return evaluator{}
}

// Evaluate checks the coupon in a fixed order so the reported reason is stable:
// active flag, validity window, usage limit, minimum cart value.
func (evaluator) Evaluate(c *model.Coupon, subTotal int64, now time.Time) (int64, string) {
	if c == nil {
		return 0, model.CouponRejectedNotFound
	}
	if !c.Active {
		return 0, model.CouponRejectedInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return 0, model.CouponRejectedNotStarted
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return 0, model.CouponRejectedExpired
	}
	if c.UsageLimit != nil && len(c.UsedBy) >= *c.UsageLimit {
		return 0, model.CouponRejectedLimitReached
	}
	if c.MinCartValue != nil && subTotal < *c.MinCartValue {
		return 0, model.CouponRejectedBelowMinimum
	}

	var discount int64
	switch c.DiscountType {
	case model.DiscountPercentage:
		discount = decimal.NewFromInt(subTotal).
			Mul(decimal.NewFromFloat(c.DiscountValue)).
			Div(hundred).
			Round(0).
			IntPart()
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case model.DiscountFlat:
		discount = decimal.NewFromFloat(c.DiscountValue).Round(0).IntPart()
	default:
		return 0, model.CouponRejectedInactive
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subTotal {
		discount = subTotal
	}
	return discount, ""
}
