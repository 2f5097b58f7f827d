package repository

import (
	"context"
	"fmt"

	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *outboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Insert stores a message within the provided transaction.
func (r *outboxRepository) Insert(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error {
	query := `
		INSERT INTO outbox (event_id, topic, key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, msg.EventID, msg.Topic, msg.Key, msg.Payload, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("topic", msg.Topic).Str("key", msg.Key).Msg("failed to insert outbox message")
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	return nil
}

// FetchPending locks up to limit unsent messages, oldest first.
func (r *outboxRepository) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OutboxMessage, error) {
	query := `
		SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to fetch outbox messages")
		return nil, fmt.Errorf("failed to fetch outbox messages: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox messages: %w", err)
	}
	return msgs, nil
}

// MarkSent stamps messages as delivered.
func (r *outboxRepository) MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to mark outbox messages sent")
		return fmt.Errorf("failed to mark outbox messages sent: %w", err)
	}
	return nil
}
