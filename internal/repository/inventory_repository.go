package repository

import (
	"context"
	"errors"
	"fmt"

	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// inventoryRepository implements InventoryRepository with conditional UPDATEs.
// Postgres re-checks the WHERE clause after taking the row lock, so two
// concurrent writers to the same product serialise and the loser sees the
// committed counters.
type inventoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// Reserve holds qty units and returns the product with its current price.
func (r *inventoryRepository) Reserve(ctx context.Context, tx pgx.Tx, productID string, qty int) (*model.Product, error) {
	query := `
		UPDATE products
		SET reserved = reserved + $2, updated_at = now()
		WHERE id = $1 AND stock - reserved >= $2
		RETURNING ` + productColumns

	p, err := scanProduct(tx.QueryRow(ctx, query, productID, qty))
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error().Err(err).Str("product_id", productID).Int("quantity", qty).Msg("failed to reserve stock")
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	if err := r.guardMiss(ctx, tx, productID); err != nil {
		return nil, err
	}
	r.logger.Debug().Str("product_id", productID).Int("quantity", qty).Msg("insufficient stock")
	return nil, model.NewInsufficientStockError(productID)
}

// Release returns qty held units to availability.
func (r *inventoryRepository) Release(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	query := `
		UPDATE products
		SET reserved = reserved - $2, updated_at = now()
		WHERE id = $1 AND reserved >= $2
	`
	return r.apply(ctx, tx, "release", query, productID, qty)
}

// Commit turns qty held units into a real deduction.
func (r *inventoryRepository) Commit(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, reserved = reserved - $2, updated_at = now()
		WHERE id = $1 AND reserved >= $2 AND stock >= $2
	`
	return r.apply(ctx, tx, "commit", query, productID, qty)
}

// Restock adds qty units back to stock.
func (r *inventoryRepository) Restock(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
	`
	return r.apply(ctx, tx, "restock", query, productID, qty)
}

func (r *inventoryRepository) apply(ctx context.Context, tx pgx.Tx, op, query, productID string, qty int) error {
	tag, err := tx.Exec(ctx, query, productID, qty)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("op", op).
			Str("product_id", productID).
			Int("quantity", qty).
			Msg("failed to update stock")
		return fmt.Errorf("failed to %s stock: %w", op, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if err := r.guardMiss(ctx, tx, productID); err != nil {
		return err
	}
	r.logger.Warn().
		Str("op", op).
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("stock guard rejected update")
	return model.NewLedgerConflictError(op, productID)
}

// guardMiss tells a missing product apart from a failed guard.
func (r *inventoryRepository) guardMiss(ctx context.Context, tx pgx.Tx, productID string) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to check product")
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return model.NewProductNotFoundError(productID)
	}
	return nil
}

// Audit lists products whose reserved counter differs from the quantities
// held by orders in stock state "reserved".
func (r *inventoryRepository) Audit(ctx context.Context) ([]model.ReservationDrift, error) {
	query := `
		SELECT p.id, p.reserved, COALESCE(h.held, 0) AS expected
		FROM products p
		LEFT JOIN (
			SELECT oi.product_id, SUM(oi.quantity)::int AS held
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.stock_state = 'reserved'
			GROUP BY oi.product_id
		) h ON h.product_id = p.id
		WHERE p.reserved <> COALESCE(h.held, 0)
		ORDER BY p.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to audit reservations")
		return nil, fmt.Errorf("failed to audit reservations: %w", err)
	}
	defer rows.Close()

	var drift []model.ReservationDrift
	for rows.Next() {
		var d model.ReservationDrift
		if err := rows.Scan(&d.ProductID, &d.Reserved, &d.Expected); err != nil {
			return nil, fmt.Errorf("failed to scan reservation drift: %w", err)
		}
		drift = append(drift, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservation drift: %w", err)
	}

	return drift, nil
}
