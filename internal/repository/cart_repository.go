package repository

import (
	"context"
	"fmt"

	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

const cartQuery = `
	SELECT user_id, product_id, quantity, attributes, updated_at
	FROM cart_items
	WHERE user_id = $1
	ORDER BY product_id
`

// List returns the user's cart lines.
func (r *cartRepository) List(ctx context.Context, userID string) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx, cartQuery, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return collectCart(rows)
}

// GetItemsForUpdate returns the user's cart lines locked for the transaction.
func (r *cartRepository) GetItemsForUpdate(ctx context.Context, tx pgx.Tx, userID string) ([]model.CartItem, error) {
	rows, err := tx.Query(ctx, cartQuery+" FOR UPDATE", userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return collectCart(rows)
}

func collectCart(rows pgx.Rows) ([]model.CartItem, error) {
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.Attributes, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

// Upsert adds or replaces a cart line.
func (r *cartRepository) Upsert(ctx context.Context, item model.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, attributes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, item.UserID, item.ProductID, item.Quantity, attributesOrEmpty(item.Attributes))
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", item.UserID).
			Str("product_id", item.ProductID).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

// Remove deletes a cart line.
func (r *cartRepository) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("failed to remove cart item")
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear deletes all of the user's cart lines within the transaction.
func (r *cartRepository) Clear(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
