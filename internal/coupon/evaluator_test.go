package coupon

import (
	"testing"
	"time"

	"kartcore/internal/model"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestEvaluator_Evaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		coupon       *model.Coupon
		subTotal     int64
		wantDiscount int64
		wantReason   string
	}{
		{
			name:       "missing coupon",
			coupon:     nil,
			subTotal:   1000,
			wantReason: model.CouponRejectedNotFound,
		},
		{
			name:       "inactive",
			coupon:     &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50},
			subTotal:   1000,
			wantReason: model.CouponRejectedInactive,
		},
		{
			name: "not started",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				ValidFrom: ptr(now.Add(time.Hour))},
			subTotal:   1000,
			wantReason: model.CouponRejectedNotStarted,
		},
		{
			name: "expired",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				ValidTo: ptr(now.Add(-time.Second))},
			subTotal:   1000,
			wantReason: model.CouponRejectedExpired,
		},
		{
			name: "window bounds are inclusive",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				ValidFrom: ptr(now), ValidTo: ptr(now)},
			subTotal:     1000,
			wantDiscount: 50,
		},
		{
			name: "usage limit reached",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				UsageLimit: ptr(2), UsedBy: []string{"u1", "u2"}},
			subTotal:   1000,
			wantReason: model.CouponRejectedLimitReached,
		},
		{
			name: "one use left",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				UsageLimit: ptr(2), UsedBy: []string{"u1"}},
			subTotal:     1000,
			wantDiscount: 50,
		},
		{
			name: "below minimum cart value",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				MinCartValue: ptr(int64(1001))},
			subTotal:   1000,
			wantReason: model.CouponRejectedBelowMinimum,
		},
		{
			name: "exactly minimum cart value",
			coupon: &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true,
				MinCartValue: ptr(int64(1000))},
			subTotal:     1000,
			wantDiscount: 50,
		},
		{
			name:         "flat discount applied verbatim",
			coupon:       &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 50, Active: true},
			subTotal:     200,
			wantDiscount: 50,
		},
		{
			name:         "flat discount capped at subtotal",
			coupon:       &model.Coupon{DiscountType: model.DiscountFlat, DiscountValue: 500, Active: true},
			subTotal:     200,
			wantDiscount: 200,
		},
		{
			name:         "percentage",
			coupon:       &model.Coupon{DiscountType: model.DiscountPercentage, DiscountValue: 10, Active: true},
			subTotal:     1999,
			wantDiscount: 200,
		},
		{
			name: "percentage capped at max discount",
			coupon: &model.Coupon{DiscountType: model.DiscountPercentage, DiscountValue: 50, Active: true,
				MaxDiscount: ptr(int64(300))},
			subTotal:     1000,
			wantDiscount: 300,
		},
		{
			name:         "fractional percentage",
			coupon:       &model.Coupon{DiscountType: model.DiscountPercentage, DiscountValue: 12.5, Active: true},
			subTotal:     1000,
			wantDiscount: 125,
		},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, reason := e.Evaluate(tt.coupon, tt.subTotal, now)
			assert.Equal(t, tt.wantDiscount, discount)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
