// Package pricing derives order totals from captured line prices.
package pricing

import (
	"kartcore/internal/model"

	"github.com/shopspring/decimal"
)

// Aggregator computes order totals. It holds no state beyond its configuration
// and is safe for concurrent use.
type Aggregator struct {
	taxRate  decimal.Decimal
	shipping int64
}

// NewAggregator creates an aggregator with the given tax rate (0.18 for 18%)
// and a flat shipping fee in minor units.
func NewAggregator(taxRate decimal.Decimal, shipping int64) *Aggregator {
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	if shipping < 0 {
		shipping = 0
	}
	return &Aggregator{
		taxRate:  taxRate,
		shipping: shipping,
	}
}

// SubTotal sums unit price times quantity over all lines.
func SubTotal(items []model.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// Totals derives the remaining amounts from a subtotal and an already
// evaluated discount. The discount is clamped to [0, subTotal] so the taxable
// base is never negative.
func (a *Aggregator) Totals(subTotal, discount int64) model.Totals {
	if discount < 0 {
		discount = 0
	}
	if discount > subTotal {
		discount = subTotal
	}

	taxable := decimal.NewFromInt(subTotal - discount)
	tax := taxable.Mul(a.taxRate).Round(0).IntPart()

	grand := subTotal - discount + a.shipping + tax
	if grand < 0 {
		grand = 0
	}

	return model.Totals{
		SubTotal:   subTotal,
		Discount:   discount,
		Tax:        tax,
		Shipping:   a.shipping,
		GrandTotal: grand,
	}
}
