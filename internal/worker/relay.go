package worker

import (
	"context"
	"fmt"

	"kartcore/internal/events"
	"kartcore/internal/metrics"
	"kartcore/internal/model"
	"kartcore/internal/repository"

	"github.com/rs/zerolog"
)

// Relay publishes pending outbox rows and marks them sent. Rows are locked
// with SKIP LOCKED, so several relays can run side by side. Delivery is at
// least once: a crash between publish and commit republishes the batch, and
// consumers dedupe on the event id header.
type Relay struct {
	outbox    repository.OutboxRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	batch     int
	logger    zerolog.Logger
}

// NewRelay creates an outbox relay.
func NewRelay(outbox repository.OutboxRepository, publisher events.Publisher, m *metrics.Metrics, batch int, logger zerolog.Logger) *Relay {
	if batch <= 0 {
		batch = 100
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		metrics:   m,
		batch:     batch,
		logger:    logger.With().Str("worker", "relay").Logger(),
	}
}

// RunOnce relays one batch.
func (r *Relay) RunOnce(ctx context.Context) error {
	_, err := r.relay(ctx)
	return err
}

// Drain relays batches until the outbox is empty or a pass fails.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		n, err := r.relay(ctx)
		if err != nil || n < r.batch {
			return err
		}
	}
}

func (r *Relay) relay(ctx context.Context) (_ int, err error) {
	tx, err := r.outbox.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	msgs, err := r.outbox.FetchPending(ctx, tx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, tx.Commit(ctx)
	}

	if err = r.publisher.Publish(ctx, msgs); err != nil {
		return 0, fmt.Errorf("failed to publish %d events: %w", len(msgs), err)
	}

	if err = r.outbox.MarkSent(ctx, tx, ids(msgs)); err != nil {
		return 0, err
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	for _, m := range msgs {
		r.metrics.Relayed(m.Topic)
	}
	r.logger.Debug().Int("count", len(msgs)).Msg("outbox batch relayed")
	return len(msgs), nil
}

func ids(msgs []model.OutboxMessage) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
