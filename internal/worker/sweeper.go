package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kartcore/internal/inventory"
	"kartcore/internal/metrics"
	"kartcore/internal/repository"
	"kartcore/internal/service"

	"github.com/rs/zerolog"
)

const defaultSweepBatch = 100

// Sweeper expires gateway orders whose payment never arrived and audits the
// reserved counters.
type Sweeper struct {
	orders   repository.OrderRepository
	payments service.PaymentService
	ledger   inventory.Ledger
	metrics  *metrics.Metrics
	ttl      time.Duration
	batch    int
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper that expires reservations older than ttl.
func NewSweeper(
	orders repository.OrderRepository,
	payments service.PaymentService,
	ledger inventory.Ledger,
	m *metrics.Metrics,
	ttl time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		orders:   orders,
		payments: payments,
		ledger:   ledger,
		metrics:  m,
		ttl:      ttl,
		batch:    defaultSweepBatch,
		now:      time.Now,
		logger:   logger.With().Str("worker", "sweeper").Logger(),
	}
}

// RunOnce expires one batch of stale reservations and then audits drift.
// A failure on one order does not stop the rest of the batch.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.ttl)

	numbers, err := s.orders.ListExpiredReservations(ctx, cutoff, s.batch)
	if err != nil {
		return fmt.Errorf("failed to list expired reservations: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, number := range numbers {
		ok, err := s.payments.ExpireUnpaid(ctx, number, cutoff)
		if err != nil {
			s.logger.Error().Err(err).Str("order_id", number).Msg("failed to expire order")
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}
	s.metrics.OrdersExpired(expired)

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Int("candidates", len(numbers)).Msg("expired unpaid orders")
	}

	drift, err := s.ledger.Audit(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to audit reservations: %w", err))
	} else {
		s.metrics.ReservationDrift(len(drift))
	}

	return errors.Join(errs...)
}
