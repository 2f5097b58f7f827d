package coupon

import (
	"context"
	"time"

	"kartcore/internal/model"
)

// Evaluator decides whether a coupon applies to a cart and how much it takes off.
type Evaluator interface {
	// Evaluate returns the discount in minor units, or zero and a rejection
	// reason when the coupon does not apply. A nil coupon is reported as not found.
	Evaluate(c *model.Coupon, subTotal int64, now time.Time) (int64, string)
}

// Catalog is a set of coupon definitions keyed by code.
type Catalog interface {
	// Get returns the definition for code.
	Get(code string) (model.Coupon, bool)

	// Coupons returns all definitions ordered by code.
	Coupons() []model.Coupon

	// Size returns the number of coupons in the catalog.
	Size() int
}

// Loader defines the interface for loading coupon seed files.
type Loader interface {
	// Load reads a gzipped JSON-lines coupon file and returns a Catalog.
	Load(ctx context.Context, filePath string) (Catalog, error)
}

// Store persists coupon definitions.
type Store interface {
	// Upsert inserts or updates definitions without touching their usage history.
	Upsert(ctx context.Context, coupons []model.Coupon) (int, error)
}
