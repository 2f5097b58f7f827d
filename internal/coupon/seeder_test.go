package coupon

import (
	"context"
	"errors"
	"testing"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upsert(ctx context.Context, coupons []model.Coupon) (int, error) {
	args := m.Called(ctx, coupons)
	return args.Int(0), args.Error(1)
}

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()

	first := createTestCouponFile(t, "a.jsonl.gz", []string{
		`{"code":"SHARED","discountType":"flat","discountValue":10,"active":true}`,
		`{"code":"ONLYA","discountType":"flat","discountValue":5,"active":true}`,
	})
	second := createTestCouponFile(t, "b.jsonl.gz", []string{
		`{"code":"SHARED","discountType":"percentage","discountValue":15,"active":true}`,
	})

	store := new(MockStore)
	store.On("Upsert", ctx, mock.MatchedBy(func(cs []model.Coupon) bool {
		if len(cs) != 2 {
			return false
		}
		// Ordered by code, and the later file wins for SHARED.
		return cs[0].Code == "ONLYA" &&
			cs[1].Code == "SHARED" &&
			cs[1].DiscountType == model.DiscountPercentage
	})).Return(2, nil)

	seeder := NewSeeder(NewFileLoader(zerolog.Nop()), store, zerolog.Nop())

	n, err := seeder.Seed(ctx, []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	store.AssertExpectations(t)
}

func TestSeeder_Seed_NoPaths(t *testing.T) {
	store := new(MockStore)
	seeder := NewSeeder(NewFileLoader(zerolog.Nop()), store, zerolog.Nop())

	n, err := seeder.Seed(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSeeder_Seed_LoadFailure(t *testing.T) {
	good := createTestCouponFile(t, "good.jsonl.gz", []string{
		`{"code":"OK","discountType":"flat","discountValue":10,"active":true}`,
	})

	store := new(MockStore)
	seeder := NewSeeder(NewFileLoader(zerolog.Nop()), store, zerolog.Nop())

	_, err := seeder.Seed(context.Background(), []string{good, "/does/not/exist.gz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/does/not/exist.gz")
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSeeder_Seed_StoreFailure(t *testing.T) {
	ctx := context.Background()
	path := createTestCouponFile(t, "one.jsonl.gz", []string{
		`{"code":"OK","discountType":"flat","discountValue":10,"active":true}`,
	})

	store := new(MockStore)
	store.On("Upsert", ctx, mock.Anything).Return(0, errors.New("connection refused"))

	seeder := NewSeeder(NewFileLoader(zerolog.Nop()), store, zerolog.Nop())

	_, err := seeder.Seed(ctx, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed coupons")
}
