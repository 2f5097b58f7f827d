package handler

import (
	"context"
	"time"

	"kartcore/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, number string) (*model.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, number string, req *model.StatusUpdateRequest) (*model.Order, error) {
	args := m.Called(ctx, number, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) HandlePaymentWebhook(ctx context.Context, hook *model.PaymentWebhook) (*model.WebhookAck, error) {
	args := m.Called(ctx, hook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookAck), args.Error(1)
}

func (m *MockPaymentService) ExpireUnpaid(ctx context.Context, number string, cutoff time.Time) (bool, error) {
	args := m.Called(ctx, number, cutoff)
	return args.Bool(0), args.Error(1)
}

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.ProductResponse, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProductResponse), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductResponse), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartService) PutItem(ctx context.Context, userID string, req *model.CartItemRequest) (*model.Cart, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of cache.IdempotencyStore.
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, userID, key string) (string, bool, error) {
	args := m.Called(ctx, userID, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, userID, key, orderNumber string) error {
	return m.Called(ctx, userID, key, orderNumber).Error(0)
}

func (m *MockIdempotencyStore) Abandon(ctx context.Context, userID, key string) error {
	return m.Called(ctx, userID, key).Error(0)
}
