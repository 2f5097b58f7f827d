package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"kartcore/internal/cache"
	"kartcore/internal/events"
	"kartcore/internal/inventory"
	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type paymentService struct {
	deps    Dependencies
	deduper cache.WebhookDeduper
	logger  zerolog.Logger
}

// NewPaymentService creates a new payment reconciliation service. A nil
// deduper disables the Redis fast path; the database checks still hold.
func NewPaymentService(deps Dependencies, deduper cache.WebhookDeduper, logger zerolog.Logger) PaymentService {
	if deduper == nil {
		deduper = cache.NoopWebhookDeduper{}
	}
	return &paymentService{
		deps:    deps.withDefaults(),
		deduper: deduper,
		logger:  logger.With().Str("service", "payment").Logger(),
	}
}

// HandlePaymentWebhook settles or fails a gateway payment.
func (s *paymentService) HandlePaymentWebhook(ctx context.Context, hook *model.PaymentWebhook) (_ *model.WebhookAck, err error) {
	if err = validateWebhook(hook); err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("order_id", hook.OrderID).
		Str("transaction_id", hook.TransactionID).
		Str("status", string(hook.Status)).
		Logger()

	dedupKey := hook.OrderID + ":" + hook.TransactionID + ":" + string(hook.Status)
	seen, derr := s.deduper.Seen(ctx, dedupKey)
	if derr != nil {
		log.Warn().Err(derr).Msg("webhook dedup lookup failed, falling back to database")
	}
	if seen {
		log.Debug().Msg("webhook replay short-circuited")
		s.deps.Metrics.Webhook(string(hook.Status), string(model.WebhookDuplicate))
		return &model.WebhookAck{Received: true, OrderID: hook.OrderID, Outcome: model.WebhookDuplicate}, nil
	}

	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, log, s.deps.Metrics)
		}
	}()

	order, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, hook.OrderID)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	if order == nil {
		log.Warn().Msg("webhook for unknown order")
		return nil, model.ErrOrderNotFound
	}

	ack := &model.WebhookAck{Received: true, OrderID: order.Number, PaymentStatus: order.Payment.Status}
	var refund bool

	switch {
	case order.Payment.Status == model.PaymentStatusPaid:
		ack.Outcome = model.WebhookDuplicate
		if hook.Status == model.WebhookStatusFailure {
			log.Warn().Msg("failure reported for a paid order, ignoring")
			ack.Outcome = model.WebhookIgnored
		}
	case order.Payment.Status == model.PaymentStatusFailed && hook.Status == model.WebhookStatusFailure:
		ack.Outcome = model.WebhookDuplicate
	case order.Payment.Status != model.PaymentStatusPending && !recoverable(order),
		order.Status.Terminal(),
		order.Payment.Method != model.PaymentMethodGateway:
		log.Warn().
			Str("order_status", string(order.Status)).
			Str("payment_status", string(order.Payment.Status)).
			Str("payment_method", string(order.Payment.Method)).
			Msg("webhook cannot be applied to order, ignoring")
		ack.Outcome = model.WebhookIgnored
	default:
		if refund, err = s.apply(ctx, tx, order, hook); err != nil {
			return nil, err
		}
		ack.Outcome = model.WebhookApplied
		ack.PaymentStatus = order.Payment.Status
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit transaction")
		return nil, model.NewStorageError(err)
	}

	if ack.Outcome != model.WebhookIgnored {
		if merr := s.deduper.Mark(ctx, dedupKey); merr != nil {
			log.Warn().Err(merr).Msg("failed to store webhook marker")
		}
	}

	if refund {
		s.deps.Metrics.RefundRequired()
	}
	s.deps.Metrics.Webhook(string(hook.Status), string(ack.Outcome))
	log.Info().Str("outcome", string(ack.Outcome)).Msg("payment webhook handled")
	return ack, nil
}

// recoverable reports whether a declined gateway order can still take a
// success webhook. The capture moved money, so it is applied against a fresh
// reservation.
func recoverable(order *model.Order) bool {
	return order.Payment.Status == model.PaymentStatusFailed &&
		order.Payment.Method == model.PaymentMethodGateway &&
		!order.Status.Terminal() &&
		order.StockState == model.StockStateReleased
}

// apply moves a gateway order to paid or failed. refund is true when the
// payment was recorded but the stock could not be held again, leaving the
// order unconfirmed until someone returns the money.
func (s *paymentService) apply(ctx context.Context, tx pgx.Tx, order *model.Order, hook *model.PaymentWebhook) (refund bool, err error) {
	now := s.deps.Now().UTC()
	lines := inventory.LinesFromItems(order.Items)
	txnID := hook.TransactionID

	if hook.Status == model.WebhookStatusSuccess {
		if order.StockState == model.StockStateReleased {
			held, err := s.reserveAgain(ctx, tx, lines)
			if err != nil {
				return false, err
			}
			if held {
				order.StockState = model.StockStateReserved
			}
		}
		if order.StockState == model.StockStateReserved {
			if err := s.deps.Ledger.CommitAll(ctx, tx, lines); err != nil {
				return false, model.NewStorageError(err)
			}
			order.StockState = model.StockStateCommitted
		}
		order.Payment.Status = model.PaymentStatusPaid
		order.Payment.TransactionID = &txnID
		order.Payment.PaidAt = &now
		if order.StockState == model.StockStateCommitted {
			order.Status = model.OrderStatusConfirmed
		} else {
			refund = true
			s.logger.Error().
				Str("order_id", order.Number).
				Str("transaction_id", txnID).
				Int64("amount", order.Totals.GrandTotal).
				Msg("paid order could not hold its stock, refund required")
		}
	} else {
		if order.StockState == model.StockStateReserved {
			if err := s.deps.Ledger.ReleaseAll(ctx, tx, lines); err != nil {
				return false, model.NewStorageError(err)
			}
			order.StockState = model.StockStateReleased
		}
		order.Payment.Status = model.PaymentStatusFailed
		order.Payment.TransactionID = &txnID
	}

	order.UpdatedAt = now
	if err := s.deps.Orders.Update(ctx, tx, order); err != nil {
		return false, model.NewStorageError(err)
	}

	if order.Status == model.OrderStatusConfirmed {
		msg, err := events.NewOutboxMessage(events.EventOrderConfirmed, order, now)
		if err != nil {
			return false, model.NewStorageError(err)
		}
		if err := s.deps.Outbox.Insert(ctx, tx, msg); err != nil {
			return false, model.NewStorageError(err)
		}
	}
	return refund, nil
}

// reserveAgain holds the order's lines inside a savepoint. held is false when
// the catalogue can no longer cover them; the savepoint is rolled back so no
// partial reservation survives.
func (s *paymentService) reserveAgain(ctx context.Context, tx pgx.Tx, lines []inventory.Line) (held bool, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, model.NewStorageError(err)
	}

	if _, err = s.deps.Ledger.ReserveAll(ctx, sp, lines); err != nil {
		if rerr := sp.Rollback(ctx); rerr != nil {
			return false, model.NewStorageError(rerr)
		}
		if errors.Is(err, model.ErrInsufficientStock) || errors.Is(err, model.ErrProductNotFound) {
			return false, nil
		}
		return false, model.NewStorageError(err)
	}

	if err = sp.Commit(ctx); err != nil {
		return false, model.NewStorageError(err)
	}
	return true, nil
}

// ExpireUnpaid cancels a gateway order whose payment never arrived.
func (s *paymentService) ExpireUnpaid(ctx context.Context, number string, cutoff time.Time) (_ bool, err error) {
	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		return false, model.NewStorageError(err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger, s.deps.Metrics)
		}
	}()

	order, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, number)
	if err != nil {
		return false, model.NewStorageError(err)
	}

	if order == nil ||
		order.Payment.Method != model.PaymentMethodGateway ||
		order.Status != model.OrderStatusCreated ||
		order.Payment.Status != model.PaymentStatusPending ||
		order.StockState != model.StockStateReserved ||
		!order.CreatedAt.Before(cutoff) {
		// Paid, failed or cancelled since it was listed.
		if err = tx.Commit(ctx); err != nil {
			return false, model.NewStorageError(err)
		}
		return false, nil
	}

	if err = s.deps.Ledger.ReleaseAll(ctx, tx, inventory.LinesFromItems(order.Items)); err != nil {
		return false, model.NewStorageError(err)
	}

	now := s.deps.Now().UTC()
	order.Payment.Status = model.PaymentStatusFailed
	order.Status = model.OrderStatusCancelled
	order.StockState = model.StockStateReleased
	order.UpdatedAt = now

	if err = s.deps.Orders.Update(ctx, tx, order); err != nil {
		return false, model.NewStorageError(err)
	}

	msg, err := events.NewOutboxMessage(events.EventOrderCancelled, order, now)
	if err != nil {
		return false, model.NewStorageError(err)
	}
	if err = s.deps.Outbox.Insert(ctx, tx, msg); err != nil {
		return false, model.NewStorageError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, model.NewStorageError(err)
	}

	s.logger.Info().
		Str("order_id", number).
		Time("created_at", order.CreatedAt).
		Msg("unpaid order expired")
	return true, nil
}

// Width of orders.transaction_id.
const maxTransactionIDLength = 128

func validateWebhook(hook *model.PaymentWebhook) error {
	if hook == nil {
		return model.NewInvalidRequestError("webhook payload is required")
	}
	if strings.TrimSpace(hook.OrderID) == "" {
		return model.NewInvalidRequestError("orderId is required")
	}
	if strings.TrimSpace(hook.TransactionID) == "" {
		return model.NewInvalidRequestError("transactionId is required")
	}
	if utf8.RuneCountInString(hook.TransactionID) > maxTransactionIDLength {
		return model.NewInvalidRequestError("transactionId must be at most %d characters", maxTransactionIDLength)
	}
	switch hook.Status {
	case model.WebhookStatusSuccess, model.WebhookStatusFailure:
		return nil
	}
	return model.NewInvalidRequestError("status must be success or failure")
}
