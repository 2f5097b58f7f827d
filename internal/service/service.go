package service

import (
	"context"
	"errors"
	"time"

	"kartcore/internal/coupon"
	"kartcore/internal/inventory"
	"kartcore/internal/metrics"
	"kartcore/internal/model"
	"kartcore/internal/pricing"
	"kartcore/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// ProductService defines catalogue reads.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.ProductResponse, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.ProductResponse, error)
}

// CartService defines operations on a user's persisted cart.
type CartService interface {
	// Get returns the user's cart priced at current catalogue prices.
	Get(ctx context.Context, userID string) (*model.Cart, error)

	// PutItem adds, replaces or (with a zero quantity) removes a cart line and
	// returns the updated cart.
	PutItem(ctx context.Context, userID string, req *model.CartItemRequest) (*model.Cart, error)
}

// OrderService defines the order lifecycle.
type OrderService interface {
	// PlaceOrder reserves stock, prices the order, applies the coupon and
	// settles wallet payments in one transaction.
	PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.Order, error)

	// GetOrder retrieves an order by its external number.
	GetOrder(ctx context.Context, number string) (*model.Order, error)

	// UpdateOrderStatus moves an order through its lifecycle on behalf of an admin.
	UpdateOrderStatus(ctx context.Context, number string, req *model.StatusUpdateRequest) (*model.Order, error)
}

// PaymentService reconciles asynchronous payment outcomes.
type PaymentService interface {
	// HandlePaymentWebhook applies a gateway notification. Replays are acknowledged
	// without side effects.
	HandlePaymentWebhook(ctx context.Context, hook *model.PaymentWebhook) (*model.WebhookAck, error)

	// ExpireUnpaid cancels an unpaid gateway order created before cutoff and
	// releases its reservation. It reports whether the order was expired.
	ExpireUnpaid(ctx context.Context, number string, cutoff time.Time) (bool, error)
}

// Dependencies groups the collaborators shared by the order and payment services.
type Dependencies struct {
	Orders    repository.OrderRepository
	Carts     repository.CartRepository
	Addresses repository.AddressRepository
	Coupons   repository.CouponRepository
	Wallets   repository.WalletRepository
	Outbox    repository.OutboxRepository
	Ledger    inventory.Ledger
	Evaluator coupon.Evaluator
	Pricing   *pricing.Aggregator
	Metrics   *metrics.Metrics

	// Now and NewID default to time.Now and ULIDs.
	Now   func() time.Time
	NewID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return ulid.Make().String() }
	}
	if d.Evaluator == nil {
		d.Evaluator = coupon.NewEvaluator()
	}
	return d
}

// rollback aborts tx. A failure is logged and counted but never returned;
// the caller already has an error to report.
func rollback(ctx context.Context, tx pgx.Tx, logger zerolog.Logger, m *metrics.Metrics) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Error().Err(err).Msg("failed to rollback transaction")
		m.RollbackFailed()
	}
}

// errorCode returns the domain code of err for logs and metrics.
func errorCode(err error) string {
	var de *model.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return model.ErrCodeInternalError
}
