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

type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCodeForUpdate locks and returns a coupon.
func (r *couponRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	query := `
		SELECT code, discount_type, discount_value, min_cart_value, max_discount,
			valid_from, valid_to, usage_limit, used_by, active
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`

	var c model.Coupon
	err := tx.QueryRow(ctx, query, code).Scan(
		&c.Code, &c.DiscountType, &c.DiscountValue, &c.MinCartValue, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsedBy, &c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return &c, nil
}

// AppendUsage records one use by userID unless the limit is already reached.
func (r *couponRepository) AppendUsage(ctx context.Context, tx pgx.Tx, code, userID string) (bool, error) {
	query := `
		UPDATE coupons
		SET used_by = array_append(used_by, $2)
		WHERE code = $1
		  AND (usage_limit IS NULL OR cardinality(used_by) < usage_limit)
	`

	tag, err := tx.Exec(ctx, query, code, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to record coupon usage")
		return false, fmt.Errorf("failed to record coupon usage: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Upsert inserts or updates definitions, leaving used_by untouched.
func (r *couponRepository) Upsert(ctx context.Context, coupons []model.Coupon) (int, error) {
	if len(coupons) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO coupons (code, discount_type, discount_value, min_cart_value, max_discount,
			valid_from, valid_to, usage_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_cart_value = EXCLUDED.min_cart_value,
			max_discount = EXCLUDED.max_discount,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			usage_limit = EXCLUDED.usage_limit,
			active = EXCLUDED.active
	`

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(query, c.Code, c.DiscountType, c.DiscountValue, c.MinCartValue, c.MaxDiscount,
			c.ValidFrom, c.ValidTo, c.UsageLimit, c.Active)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range coupons {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Str("coupon_code", coupons[i].Code).Msg("failed to upsert coupon")
			return i, fmt.Errorf("failed to upsert coupon %s: %w", coupons[i].Code, err)
		}
	}

	return len(coupons), nil
}
