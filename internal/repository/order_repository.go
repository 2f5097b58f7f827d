package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kartcore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, number, user_id, address_id, status,
	sub_total, discount, tax, shipping, grand_total,
	coupon_code, coupon_rejection,
	payment_method, payment_status, transaction_id, paid_at,
	stock_state, notes, courier, tracking_number,
	created_at, updated_at`

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	courier, tracking := shipmentColumns(order.Shipment)
	_, err := tx.Exec(ctx, query,
		order.ID, order.Number, order.UserID, order.AddressID, order.Status,
		order.Totals.SubTotal, order.Totals.Discount, order.Totals.Tax, order.Totals.Shipping, order.Totals.GrandTotal,
		order.CouponCode, order.CouponRejection,
		order.Payment.Method, order.Payment.Status, order.Payment.TransactionID, order.Payment.PaidAt,
		order.StockState, order.Notes, courier, tracking,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.Number).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.Number).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, attributesOrEmpty(item.Attributes))
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByNumber retrieves an order and its items by external number.
func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.get(ctx, r.pool, number, "")
}

// GetByNumberForUpdate locks the order row for the rest of the transaction.
func (r *orderRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*model.Order, error) {
	return r.get(ctx, tx, number, "FOR UPDATE")
}

func (r *orderRepository) get(ctx context.Context, q queryer, number, lock string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1 ` + lock

	order, err := scanOrder(q.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", number).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", number).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.items(ctx, q, order.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", number).Msg("failed to query order items")
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) items(ctx context.Context, q queryer, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, attributes
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// Update persists the mutable lifecycle fields of an order.
func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2,
			payment_status = $3,
			transaction_id = $4,
			paid_at = $5,
			stock_state = $6,
			courier = $7,
			tracking_number = $8,
			updated_at = $9
		WHERE id = $1
	`

	courier, tracking := shipmentColumns(order.Shipment)
	tag, err := tx.Exec(ctx, query,
		order.ID, order.Status, order.Payment.Status, order.Payment.TransactionID, order.Payment.PaidAt,
		order.StockState, courier, tracking, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.Number).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// ListExpiredReservations returns numbers of unpaid gateway orders that still
// hold a reservation and were created before cutoff.
func (r *orderRepository) ListExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `
		SELECT number
		FROM orders
		WHERE status = 'created'
		  AND payment_status = 'pending'
		  AND stock_state = 'reserved'
		  AND payment_method = 'gateway'
		  AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list expired reservations")
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	numbers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired reservations: %w", err)
	}

	return numbers, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		courier  *string
		tracking *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.AddressID, &o.Status,
		&o.Totals.SubTotal, &o.Totals.Discount, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.GrandTotal,
		&o.CouponCode, &o.CouponRejection,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.TransactionID, &o.Payment.PaidAt,
		&o.StockState, &o.Notes, &courier, &tracking,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if courier != nil || tracking != nil {
		o.Shipment = &model.Shipment{}
		if courier != nil {
			o.Shipment.Courier = *courier
		}
		if tracking != nil {
			o.Shipment.TrackingNumber = *tracking
		}
	}
	return &o, nil
}

func shipmentColumns(s *model.Shipment) (courier, tracking *string) {
	if s == nil {
		return nil, nil
	}
	if s.Courier != "" {
		courier = &s.Courier
	}
	if s.TrackingNumber != "" {
		tracking = &s.TrackingNumber
	}
	return courier, tracking
}

func attributesOrEmpty(a model.Attributes) model.Attributes {
	if a == nil {
		return model.Attributes{}
	}
	return a
}
