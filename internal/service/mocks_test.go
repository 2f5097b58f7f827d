package service

import (
	"context"
	"time"

	"kartcore/internal/inventory"
	"kartcore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*model.Order, error) {
	args := m.Called(ctx, tx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) ListExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) List(ctx context.Context, userID string) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetItemsForUpdate(ctx context.Context, tx pgx.Tx, userID string) ([]model.CartItem, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) Upsert(ctx context.Context, item model.CartItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockCartRepository) Remove(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, tx pgx.Tx, userID string) error {
	return m.Called(ctx, tx, userID).Error(0)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) GetForUser(ctx context.Context, tx pgx.Tx, userID, addressID string) (*model.Address, error) {
	args := m.Called(ctx, tx, userID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

// MockCouponRepository is a mock implementation of CouponRepository.
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	args := m.Called(ctx, tx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) AppendUsage(ctx context.Context, tx pgx.Tx, code, userID string) (bool, error) {
	args := m.Called(ctx, tx, code, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCouponRepository) Upsert(ctx context.Context, coupons []model.Coupon) (int, error) {
	args := m.Called(ctx, coupons)
	return args.Int(0), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Debit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	return m.Called(ctx, tx, userID, amount).Error(0)
}

func (m *MockWalletRepository) Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	return m.Called(ctx, tx, userID, amount).Error(0)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutboxRepository) Insert(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error {
	return m.Called(ctx, tx, msg).Error(0)
}

func (m *MockOutboxRepository) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OutboxMessage, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	return m.Called(ctx, tx, ids).Error(0)
}

// MockLedger is a mock implementation of inventory.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ReserveAll(ctx context.Context, tx pgx.Tx, lines []inventory.Line) (map[string]model.Product, error) {
	args := m.Called(ctx, tx, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.Product), args.Error(1)
}

func (m *MockLedger) ReleaseAll(ctx context.Context, tx pgx.Tx, lines []inventory.Line) error {
	return m.Called(ctx, tx, lines).Error(0)
}

func (m *MockLedger) CommitAll(ctx context.Context, tx pgx.Tx, lines []inventory.Line) error {
	return m.Called(ctx, tx, lines).Error(0)
}

func (m *MockLedger) RestockAll(ctx context.Context, tx pgx.Tx, lines []inventory.Line) error {
	return m.Called(ctx, tx, lines).Error(0)
}

func (m *MockLedger) Audit(ctx context.Context) ([]model.ReservationDrift, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationDrift), args.Error(1)
}

// MockDeduper is a mock implementation of cache.WebhookDeduper.
type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) Mark(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Begin opens a savepoint.
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// fixture wires mocks into Dependencies.
type fixture struct {
	orders    *MockOrderRepository
	carts     *MockCartRepository
	addresses *MockAddressRepository
	coupons   *MockCouponRepository
	wallets   *MockWalletRepository
	outbox    *MockOutboxRepository
	ledger    *MockLedger
	tx        *MockTx
	deps      Dependencies
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		orders:    new(MockOrderRepository),
		carts:     new(MockCartRepository),
		addresses: new(MockAddressRepository),
		coupons:   new(MockCouponRepository),
		wallets:   new(MockWalletRepository),
		outbox:    new(MockOutboxRepository),
		ledger:    new(MockLedger),
		tx:        new(MockTx),
	}
	f.deps = Dependencies{
		Orders:    f.orders,
		Carts:     f.carts,
		Addresses: f.addresses,
		Coupons:   f.coupons,
		Wallets:   f.wallets,
		Outbox:    f.outbox,
		Ledger:    f.ledger,
		Pricing:   testAggregator(),
		Now:       func() time.Time { return fixedNow },
		NewID:     func() string { return "01J00000000000000000000001" },
	}
	f.orders.On("BeginTx", mock.Anything).Return(f.tx, nil).Maybe()
	f.tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return f
}

func (f *fixture) assertAll(t mock.TestingT) {
	mock.AssertExpectationsForObjects(t, f.orders, f.carts, f.addresses, f.coupons, f.wallets, f.outbox, f.ledger, f.tx)
}
