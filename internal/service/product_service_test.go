package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_GetAll(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	testProducts := []model.Product{
		{ID: "P001", Name: "Product 1", Price: 1000, Category: "Cat1", Stock: 10, Reserved: 4, CreatedAt: time.Now()},
		{ID: "P002", Name: "Product 2", Price: 2000, Category: "Cat2", Stock: 3, CreatedAt: time.Now()},
	}

	tests := []struct {
		name          string
		limit         int
		offset        int
		expectedLimit int
		mockReturn    []model.Product
		mockError     error
		expectError   bool
	}{
		{
			name:          "Success with valid pagination",
			limit:         10,
			offset:        0,
			expectedLimit: 10,
			mockReturn:    testProducts,
		},
		{
			name:          "Success with zero limit defaults to 10",
			limit:         0,
			offset:        0,
			expectedLimit: 10,
			mockReturn:    testProducts,
		},
		{
			name:          "Success with negative limit defaults to 10",
			limit:         -5,
			offset:        0,
			expectedLimit: 10,
			mockReturn:    testProducts,
		},
		{
			name:          "Success with limit exceeding max caps at 100",
			limit:         200,
			offset:        0,
			expectedLimit: 100,
			mockReturn:    testProducts,
		},
		{
			name:          "Success with negative offset defaults to 0",
			limit:         10,
			offset:        -10,
			expectedLimit: 10,
			mockReturn:    testProducts,
		},
		{
			name:          "Repository error",
			limit:         10,
			offset:        0,
			expectedLimit: 10,
			mockError:     errors.New("database error"),
			expectError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := NewProductService(mockRepo, logger)

			expectedOffset := tt.offset
			if expectedOffset < 0 {
				expectedOffset = 0
			}

			mockRepo.On("GetAll", ctx, tt.expectedLimit, expectedOffset).
				Return(tt.mockReturn, tt.mockError)

			products, err := service.GetAll(ctx, tt.limit, tt.offset)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrStorage)
				assert.Nil(t, products)
			} else {
				require.NoError(t, err)
				require.Len(t, products, len(tt.mockReturn))
				assert.Equal(t, 6, products[0].Available)
				assert.Equal(t, 3, products[1].Available)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestProductService_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	testProduct := &model.Product{
		ID:        "P001",
		Name:      "Product 1",
		Price:     1000,
		Category:  "Cat1",
		Stock:     5,
		Reserved:  5,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name        string
		productID   string
		mockReturn  *model.Product
		mockError   error
		expectError bool
		expectedErr error
	}{
		{
			name:       "Success",
			productID:  "P001",
			mockReturn: testProduct,
		},
		{
			name:        "Product not found",
			productID:   "P999",
			expectError: true,
			expectedErr: model.ErrProductNotFound,
		},
		{
			name:        "Empty product ID",
			productID:   "",
			expectError: true,
			expectedErr: model.ErrProductNotFound,
		},
		{
			name:        "Repository error",
			productID:   "P001",
			mockError:   errors.New("database error"),
			expectError: true,
			expectedErr: model.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := NewProductService(mockRepo, logger)

			if tt.productID != "" {
				mockRepo.On("GetByID", ctx, tt.productID).
					Return(tt.mockReturn, tt.mockError)
			}

			product, err := service.GetByID(ctx, tt.productID)

			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, product)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.mockReturn.ID, product.ID)
				assert.Equal(t, 0, product.Available)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
