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

type addressRepository struct {
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

// GetForUser returns the address when it belongs to userID.
func (r *addressRepository) GetForUser(ctx context.Context, tx pgx.Tx, userID, addressID string) (*model.Address, error) {
	query := `
		SELECT id, user_id, line1, city, postal_code, country
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`

	var a model.Address
	err := tx.QueryRow(ctx, query, addressID, userID).Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.PostalCode, &a.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("address_id", addressID).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}
	return &a, nil
}

type walletRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWalletRepository creates a new PostgreSQL-backed wallet repository.
func NewWalletRepository(pool *pgxpool.Pool, logger zerolog.Logger) WalletRepository {
	return &walletRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "wallet").Logger(),
	}
}

// Debit subtracts amount when the balance covers it. A zero amount needs no
// wallet at all.
func (r *walletRepository) Debit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	if amount == 0 {
		return nil
	}

	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
	`

	tag, err := tx.Exec(ctx, query, userID, amount)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to debit wallet")
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("user_id", userID).Int64("amount", amount).Msg("insufficient wallet balance")
		return model.ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount, creating the wallet if needed.
func (r *walletRepository) Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	if amount == 0 {
		return nil
	}

	query := `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
	`

	if _, err := tx.Exec(ctx, query, userID, amount); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to credit wallet")
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return nil
}
