package repository

import (
	"context"
	"time"

	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
)

// ProductRepository defines read access to the catalogue.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. It returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// InventoryRepository owns every write to products.stock and products.reserved.
// Each method is a single guarded statement run inside the caller's transaction.
type InventoryRepository interface {
	// Reserve holds qty units and returns the product with its current price.
	// Fails with InsufficientStock when fewer than qty units are available.
	Reserve(ctx context.Context, tx pgx.Tx, productID string, qty int) (*model.Product, error)

	// Release returns qty held units to availability.
	Release(ctx context.Context, tx pgx.Tx, productID string, qty int) error

	// Commit turns qty held units into a real deduction.
	Commit(ctx context.Context, tx pgx.Tx, productID string, qty int) error

	// Restock adds qty units back to stock.
	Restock(ctx context.Context, tx pgx.Tx, productID string, qty int) error

	// Audit lists products whose reserved counter differs from the quantities
	// held by orders in stock state "reserved".
	Audit(ctx context.Context) ([]model.ReservationDrift, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByNumber retrieves an order and its items by external number.
	// It returns nil when absent.
	GetByNumber(ctx context.Context, number string) (*model.Order, error)

	// GetByNumberForUpdate is GetByNumber with the order row locked for the
	// rest of the transaction.
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*model.Order, error)

	// Update persists the mutable lifecycle fields of an order.
	Update(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// ListExpiredReservations returns numbers of unpaid gateway orders that
	// still hold a reservation and were created before cutoff.
	ListExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// CouponRepository defines coupon access.
type CouponRepository interface {
	// GetByCodeForUpdate locks and returns a coupon. It returns nil when absent.
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)

	// AppendUsage records one use by userID. It returns false when the usage
	// limit was already reached.
	AppendUsage(ctx context.Context, tx pgx.Tx, code, userID string) (bool, error)

	// Upsert inserts or updates definitions, leaving used_by untouched.
	Upsert(ctx context.Context, coupons []model.Coupon) (int, error)
}

// CartRepository defines access to persisted carts.
type CartRepository interface {
	// List returns the user's cart lines.
	List(ctx context.Context, userID string) ([]model.CartItem, error)

	// GetItemsForUpdate returns the user's cart lines locked for the transaction.
	GetItemsForUpdate(ctx context.Context, tx pgx.Tx, userID string) ([]model.CartItem, error)

	// Upsert adds or replaces a cart line.
	Upsert(ctx context.Context, item model.CartItem) error

	// Remove deletes a cart line.
	Remove(ctx context.Context, userID, productID string) error

	// Clear deletes all of the user's cart lines within the transaction.
	Clear(ctx context.Context, tx pgx.Tx, userID string) error
}

// AddressRepository resolves shipping addresses.
type AddressRepository interface {
	// GetForUser returns the address when it belongs to userID, nil otherwise.
	GetForUser(ctx context.Context, tx pgx.Tx, userID, addressID string) (*model.Address, error)
}

// WalletRepository moves funds in user wallets.
type WalletRepository interface {
	// Debit subtracts amount. Fails with InsufficientFunds when the balance is
	// lower than amount or the wallet does not exist.
	Debit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error

	// Credit adds amount, creating the wallet if needed.
	Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error
}

// OutboxRepository stores events for asynchronous relay.
type OutboxRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Insert stores a message within the provided transaction.
	Insert(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error

	// FetchPending locks up to limit unsent messages, oldest first. Rows locked
	// by another relay are skipped.
	FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OutboxMessage, error)

	// MarkSent stamps messages as delivered.
	MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error
}
