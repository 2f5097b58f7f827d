// Package inventory applies stock ledger operations to whole orders.
package inventory

import (
	"context"
	"sort"

	"kartcore/internal/model"
	"kartcore/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Line is a quantity of one product.
type Line struct {
	ProductID string
	Quantity  int
}

// Merge validates lines, sums quantities per product and sorts by product id.
// Applying operations in this order keeps row locks acquired in a stable
// order across concurrent transactions.
func Merge(lines []Line) ([]Line, error) {
	totals := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, model.NewInvalidRequestError("product id is required")
		}
		if l.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		totals[l.ProductID] += l.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID < merged[j].ProductID
	})
	return merged, nil
}

// LinesFromItems converts order items into ledger lines.
func LinesFromItems(items []model.OrderItem) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

// Ledger applies an operation to every line of an order inside the caller's
// transaction. The first failure aborts; the caller rolls back.
type Ledger interface {
	// ReserveAll holds every line and returns the reserved products by id,
	// carrying the price current at reservation time.
	ReserveAll(ctx context.Context, tx pgx.Tx, lines []Line) (map[string]model.Product, error)

	// ReleaseAll returns held units to availability.
	ReleaseAll(ctx context.Context, tx pgx.Tx, lines []Line) error

	// CommitAll turns held units into deductions.
	CommitAll(ctx context.Context, tx pgx.Tx, lines []Line) error

	// RestockAll adds committed units back to stock.
	RestockAll(ctx context.Context, tx pgx.Tx, lines []Line) error

	// Audit reports reserved counters that disagree with open reservations.
	Audit(ctx context.Context) ([]model.ReservationDrift, error)
}

type ledger struct {
	repo   repository.InventoryRepository
	logger zerolog.Logger
}

// NewLedger creates a ledger over the inventory repository.
func NewLedger(repo repository.InventoryRepository, logger zerolog.Logger) Ledger {
	return &ledger{
		repo:   repo,
		logger: logger.With().Str("component", "inventory").Logger(),
	}
}

func (l *ledger) ReserveAll(ctx context.Context, tx pgx.Tx, lines []Line) (map[string]model.Product, error) {
	merged, err := Merge(lines)
	if err != nil {
		return nil, err
	}

	products := make(map[string]model.Product, len(merged))
	for _, line := range merged {
		p, err := l.repo.Reserve(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Str("product_id", line.ProductID).
				Int("quantity", line.Quantity).
				Msg("reservation rejected")
			return nil, err
		}
		products[line.ProductID] = *p
	}

	l.logger.Debug().Int("line_count", len(merged)).Msg("stock reserved")
	return products, nil
}

func (l *ledger) ReleaseAll(ctx context.Context, tx pgx.Tx, lines []Line) error {
	return l.apply(ctx, tx, lines, "release", l.repo.Release)
}

func (l *ledger) CommitAll(ctx context.Context, tx pgx.Tx, lines []Line) error {
	return l.apply(ctx, tx, lines, "commit", l.repo.Commit)
}

func (l *ledger) RestockAll(ctx context.Context, tx pgx.Tx, lines []Line) error {
	return l.apply(ctx, tx, lines, "restock", l.repo.Restock)
}

func (l *ledger) apply(
	ctx context.Context,
	tx pgx.Tx,
	lines []Line,
	op string,
	fn func(ctx context.Context, tx pgx.Tx, productID string, qty int) error,
) error {
	merged, err := Merge(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		if err := fn(ctx, tx, line.ProductID, line.Quantity); err != nil {
			l.logger.Error().
				Err(err).
				Str("op", op).
				Str("product_id", line.ProductID).
				Int("quantity", line.Quantity).
				Msg("ledger operation failed")
			return err
		}
	}

	l.logger.Debug().Str("op", op).Int("line_count", len(merged)).Msg("ledger operation applied")
	return nil
}

func (l *ledger) Audit(ctx context.Context) ([]model.ReservationDrift, error) {
	drift, err := l.repo.Audit(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drift {
		l.logger.Warn().
			Str("product_id", d.ProductID).
			Int("reserved", d.Reserved).
			Int("expected", d.Expected).
			Msg("reserved counter drift")
	}
	return drift, nil
}
