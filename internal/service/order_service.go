package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"kartcore/internal/coupon"
	"kartcore/internal/events"
	"kartcore/internal/inventory"
	"kartcore/internal/model"
	"kartcore/internal/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

const (
	maxNotesLength = 500
	maxOrderLines  = 100
)

// orderService implements OrderService.
type orderService struct {
	deps   Dependencies
	policy *bluemonday.Policy
	logger zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(deps Dependencies, logger zerolog.Logger) OrderService {
	return &orderService{
		deps:   deps.withDefaults(),
		policy: bluemonday.StrictPolicy(),
		logger: logger.With().Str("service", "order").Logger(),
	}
}

// PlaceOrder converts the request (or the user's cart) into an order.
func (s *orderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (_ *model.Order, err error) {
	if err = s.validatePlaceOrder(req); err != nil {
		s.logger.Warn().Err(err).Msg("invalid order request")
		return nil, err
	}

	defer func() {
		outcome := "created"
		if err != nil {
			outcome = errorCode(err)
		}
		s.deps.Metrics.OrderPlaced(string(req.PaymentMethod), outcome)
	}()

	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		return nil, model.NewStorageError(err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger, s.deps.Metrics)
		}
	}()

	address, err := s.deps.Addresses.GetForUser(ctx, tx, req.UserID, req.AddressID)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	if address == nil {
		s.logger.Warn().Str("user_id", req.UserID).Str("address_id", req.AddressID).Msg("address not found")
		return nil, model.ErrAddressNotFound
	}

	lines, fromCart, err := s.orderLines(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	products, err := s.deps.Ledger.ReserveAll(ctx, tx, toLedgerLines(lines))
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("stock reservation failed")
		return nil, model.NewStorageError(err)
	}

	now := s.deps.Now().UTC()
	order := &model.Order{
		ID:        uuid.New(),
		Number:    s.deps.NewID(),
		UserID:    req.UserID,
		AddressID: address.ID,
		Status:    model.OrderStatusCreated,
		Payment: model.Payment{
			Method: req.PaymentMethod,
			Status: model.PaymentStatusPending,
		},
		StockState: model.StockStateReserved,
		Notes:      s.sanitiseNotes(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	order.Items = make([]model.OrderItem, len(lines))
	for i, line := range lines {
		p := products[line.ProductID]
		order.Items[i] = model.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  line.ProductID,
			Name:       p.Name,
			Quantity:   line.Quantity,
			UnitPrice:  p.Price,
			Attributes: line.Attributes,
		}
	}

	subTotal := pricing.SubTotal(order.Items)
	discount, err := s.applyCoupon(ctx, tx, order, req.CouponCode, subTotal, now)
	if err != nil {
		return nil, err
	}
	order.Totals = s.deps.Pricing.Totals(subTotal, discount)

	if order.Payment.Method == model.PaymentMethodWallet {
		if err = s.settleWallet(ctx, tx, order, now); err != nil {
			return nil, err
		}
	}

	if err = s.deps.Orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, model.NewStorageError(err)
	}
	if err = s.deps.Orders.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return nil, model.NewStorageError(err)
	}

	if fromCart {
		if err = s.deps.Carts.Clear(ctx, tx, req.UserID); err != nil {
			return nil, model.NewStorageError(err)
		}
	}

	if order.Status == model.OrderStatusConfirmed {
		if err = s.enqueue(ctx, tx, events.EventOrderConfirmed, order, now); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.Number).Msg("failed to commit transaction")
		return nil, model.NewStorageError(err)
	}

	s.logger.Info().
		Str("order_id", order.Number).
		Str("user_id", order.UserID).
		Str("payment_method", string(order.Payment.Method)).
		Str("status", string(order.Status)).
		Int64("grand_total", order.Totals.GrandTotal).
		Int("item_count", len(order.Items)).
		Msg("order placed")

	return order, nil
}

// GetOrder retrieves an order by its external number.
func (s *orderService) GetOrder(ctx context.Context, number string) (*model.Order, error) {
	if strings.TrimSpace(number) == "" {
		return nil, model.ErrOrderNotFound
	}

	order, err := s.deps.Orders.GetByNumber(ctx, number)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", number).Msg("failed to get order")
		return nil, model.NewStorageError(err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", number).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// UpdateOrderStatus applies an admin transition together with its stock,
// payment and event side effects.
func (s *orderService) UpdateOrderStatus(ctx context.Context, number string, req *model.StatusUpdateRequest) (_ *model.Order, err error) {
	if req == nil || !req.Status.Valid() {
		return nil, model.NewInvalidRequestError("unknown order status")
	}

	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger, s.deps.Metrics)
		}
	}()

	order, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, number)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if order.Status == req.Status {
		if err = tx.Commit(ctx); err != nil {
			return nil, model.NewStorageError(err)
		}
		s.logger.Debug().Str("order_id", number).Str("status", string(order.Status)).Msg("status unchanged")
		return order, nil
	}

	if !model.CanTransition(order.Status, req.Status) {
		s.logger.Warn().
			Str("order_id", number).
			Str("from", string(order.Status)).
			Str("to", string(req.Status)).
			Msg("transition rejected")
		return nil, model.NewTransitionError(order.Status, req.Status)
	}

	now := s.deps.Now().UTC()
	lines := inventory.LinesFromItems(order.Items)
	var event string

	switch req.Status {
	case model.OrderStatusConfirmed:
		if order.Payment.Status != model.PaymentStatusPaid && order.Payment.Method != model.PaymentMethodCOD {
			return nil, model.NewTransitionError(order.Status, req.Status)
		}
		// A paid order whose stock went back to the shelf awaits a refund.
		if order.StockState == model.StockStateReleased {
			return nil, model.NewTransitionError(order.Status, req.Status)
		}
		if order.StockState == model.StockStateReserved {
			if err = s.deps.Ledger.CommitAll(ctx, tx, lines); err != nil {
				return nil, model.NewStorageError(err)
			}
			order.StockState = model.StockStateCommitted
		}
		order.Status = model.OrderStatusConfirmed
		event = events.EventOrderConfirmed

	case model.OrderStatusShipped:
		if req.Shipment != nil {
			order.Shipment = &model.Shipment{
				Courier:        strings.TrimSpace(req.Shipment.Courier),
				TrackingNumber: strings.TrimSpace(req.Shipment.TrackingNumber),
			}
		}
		order.Status = model.OrderStatusShipped
		event = events.EventOrderShipped

	case model.OrderStatusDelivered:
		if order.Payment.Method == model.PaymentMethodCOD && order.Payment.Status == model.PaymentStatusPending {
			txnID := "cod_" + order.Number
			order.Payment.Status = model.PaymentStatusPaid
			order.Payment.TransactionID = &txnID
			order.Payment.PaidAt = &now
		}
		order.Status = model.OrderStatusDelivered

	case model.OrderStatusCancelled, model.OrderStatusRefunded:
		if req.Status == model.OrderStatusRefunded && order.Payment.Status != model.PaymentStatusPaid {
			return nil, model.NewTransitionError(order.Status, req.Status)
		}
		if err = s.cancel(ctx, tx, order, lines); err != nil {
			return nil, err
		}
		event = events.EventOrderCancelled
	}

	order.UpdatedAt = now
	if err = s.deps.Orders.Update(ctx, tx, order); err != nil {
		return nil, model.NewStorageError(err)
	}

	if event != "" {
		if err = s.enqueue(ctx, tx, event, order, now); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", number).Msg("failed to commit transaction")
		return nil, model.NewStorageError(err)
	}

	s.deps.Metrics.StatusChanged(string(order.Status))
	s.logger.Info().
		Str("order_id", number).
		Str("status", string(order.Status)).
		Str("payment_status", string(order.Payment.Status)).
		Str("stock_state", string(order.StockState)).
		Msg("order status updated")

	return order, nil
}

// cancel returns stock and money for a cancelled order. Paid orders end up
// refunded; unpaid ones cancelled.
func (s *orderService) cancel(ctx context.Context, tx pgx.Tx, order *model.Order, lines []inventory.Line) error {
	switch order.StockState {
	case model.StockStateReserved:
		if err := s.deps.Ledger.ReleaseAll(ctx, tx, lines); err != nil {
			return model.NewStorageError(err)
		}
		order.StockState = model.StockStateReleased
	case model.StockStateCommitted:
		if err := s.deps.Ledger.RestockAll(ctx, tx, lines); err != nil {
			return model.NewStorageError(err)
		}
		order.StockState = model.StockStateRestocked
	}

	if order.Payment.Status != model.PaymentStatusPaid {
		order.Status = model.OrderStatusCancelled
		return nil
	}

	if order.Payment.Method == model.PaymentMethodWallet {
		if err := s.deps.Wallets.Credit(ctx, tx, order.UserID, order.Totals.GrandTotal); err != nil {
			return model.NewStorageError(err)
		}
	}
	order.Payment.Status = model.PaymentStatusRefunded
	order.Status = model.OrderStatusRefunded
	return nil
}

type orderLine struct {
	ProductID  string
	Quantity   int
	Attributes model.Attributes
}

func toLedgerLines(lines []orderLine) []inventory.Line {
	out := make([]inventory.Line, len(lines))
	for i, l := range lines {
		out[i] = inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

// orderLines returns the explicit request items, or the user's cart locked
// for the rest of the transaction.
func (s *orderService) orderLines(ctx context.Context, tx pgx.Tx, req *model.PlaceOrderRequest) ([]orderLine, bool, error) {
	if len(req.Items) > 0 {
		lines := make([]orderLine, len(req.Items))
		for i, item := range req.Items {
			lines[i] = orderLine{ProductID: item.ProductID, Quantity: item.Quantity, Attributes: item.Attributes}
		}
		return lines, false, nil
	}

	cart, err := s.deps.Carts.GetItemsForUpdate(ctx, tx, req.UserID)
	if err != nil {
		return nil, false, model.NewStorageError(err)
	}
	if len(cart) == 0 {
		s.logger.Warn().Str("user_id", req.UserID).Msg("cart is empty")
		return nil, false, model.ErrEmptyCart
	}

	lines := make([]orderLine, len(cart))
	for i, item := range cart {
		lines[i] = orderLine{ProductID: item.ProductID, Quantity: item.Quantity, Attributes: item.Attributes}
	}
	return lines, true, nil
}

// applyCoupon evaluates the requested coupon and records its use. A coupon
// that does not apply never fails the order; the reason is kept on the order.
func (s *orderService) applyCoupon(
	ctx context.Context,
	tx pgx.Tx,
	order *model.Order,
	requested *string,
	subTotal int64,
	now time.Time,
) (int64, error) {
	if requested == nil || strings.TrimSpace(*requested) == "" {
		return 0, nil
	}

	code := coupon.NormaliseCode(*requested)
	order.CouponCode = &code

	c, err := s.deps.Coupons.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return 0, model.NewStorageError(err)
	}

	discount, reason := s.deps.Evaluator.Evaluate(c, subTotal, now)
	if reason == "" {
		applied, err := s.deps.Coupons.AppendUsage(ctx, tx, code, order.UserID)
		if err != nil {
			return 0, model.NewStorageError(err)
		}
		if !applied {
			discount, reason = 0, model.CouponRejectedLimitReached
		}
	}

	if reason != "" {
		order.CouponRejection = &reason
		s.logger.Info().
			Str("coupon_code", code).
			Str("user_id", order.UserID).
			Str("reason", reason).
			Msg("coupon not applied")
		return 0, nil
	}

	s.logger.Debug().Str("coupon_code", code).Int64("discount", discount).Msg("coupon applied")
	return discount, nil
}

// settleWallet debits the grand total, commits the reservation and confirms
// the order.
func (s *orderService) settleWallet(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) error {
	if err := s.deps.Wallets.Debit(ctx, tx, order.UserID, order.Totals.GrandTotal); err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", order.UserID).
			Int64("amount", order.Totals.GrandTotal).
			Msg("wallet debit failed")
		return model.NewStorageError(err)
	}

	if err := s.deps.Ledger.CommitAll(ctx, tx, inventory.LinesFromItems(order.Items)); err != nil {
		return model.NewStorageError(err)
	}

	txnID := "wallet_" + s.deps.NewID()
	order.Payment.Status = model.PaymentStatusPaid
	order.Payment.TransactionID = &txnID
	order.Payment.PaidAt = &now
	order.Status = model.OrderStatusConfirmed
	order.StockState = model.StockStateCommitted
	return nil
}

func (s *orderService) enqueue(ctx context.Context, tx pgx.Tx, eventType string, order *model.Order, now time.Time) error {
	msg, err := events.NewOutboxMessage(eventType, order, now)
	if err != nil {
		return model.NewStorageError(err)
	}
	if err := s.deps.Outbox.Insert(ctx, tx, msg); err != nil {
		return model.NewStorageError(err)
	}
	return nil
}

func (s *orderService) sanitiseNotes(notes string) string {
	return strings.TrimSpace(s.policy.Sanitize(notes))
}

// validatePlaceOrder validates the order request.
func (s *orderService) validatePlaceOrder(req *model.PlaceOrderRequest) error {
	if req == nil {
		return model.NewInvalidRequestError("order request is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return model.NewInvalidRequestError("user id is required")
	}
	if strings.TrimSpace(req.AddressID) == "" {
		return model.NewInvalidRequestError("address id is required")
	}
	if !req.PaymentMethod.Valid() {
		return model.NewInvalidRequestError("payment method must be one of cod, wallet, gateway")
	}
	if utf8.RuneCountInString(req.Notes) > maxNotesLength {
		return model.NewInvalidRequestError("notes must be at most %d characters", maxNotesLength)
	}
	if len(req.Items) > maxOrderLines {
		return model.NewInvalidRequestError("at most %d items are allowed", maxOrderLines)
	}

	// Validate each item
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return model.NewInvalidRequestError("item %d: product id is required", i)
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
		if err := item.Attributes.Validate(); err != nil {
			return err
		}
	}

	return nil
}
