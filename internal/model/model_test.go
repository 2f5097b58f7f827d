package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusCreated, OrderStatusConfirmed, true},
		{OrderStatusCreated, OrderStatusCancelled, true},
		{OrderStatusCreated, OrderStatusShipped, false},
		{OrderStatusCreated, OrderStatusRefunded, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusRefunded, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusRefunded, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.True(t, OrderStatusRefunded.Terminal())
	assert.False(t, OrderStatusCreated.Terminal())
	assert.False(t, OrderStatusConfirmed.Terminal())
	assert.False(t, OrderStatus("bogus").Terminal())
}

func TestDomainError_Is(t *testing.T) {
	err := NewInsufficientStockError("P001")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrEmptyCart))
	assert.Equal(t, "P001", err.ProductID)
	assert.Contains(t, err.Error(), "P001")

	wrapped := fmt.Errorf("failed to place order: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, ErrCodeInsufficientStock, de.Code)
}

func TestNewStorageError(t *testing.T) {
	assert.Nil(t, NewStorageError(nil))

	cause := errors.New("connection reset")
	err := NewStorageError(cause)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))

	// Domain errors are not re-labelled as storage failures.
	assert.Equal(t, ErrEmptyCart, NewStorageError(ErrEmptyCart))
}

func TestNewTransitionError(t *testing.T) {
	err := NewTransitionError(OrderStatusShipped, OrderStatusCancelled)

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, OrderStatusShipped, err.CurrentStatus)
}

func TestAttributes_Validate(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attributes
		wantErr bool
	}{
		{name: "nil", attrs: nil},
		{name: "documented keys", attrs: Attributes{AttrSize: "M", AttrColor: "red", AttrGiftWrap: "yes"}},
		{name: "custom key", attrs: Attributes{"monogram_font": "serif"}},
		{name: "uppercase key", attrs: Attributes{"Size": "M"}, wantErr: true},
		{name: "key with dash", attrs: Attributes{"gift-wrap": "yes"}, wantErr: true},
		{name: "value too long", attrs: Attributes{AttrEngraving: strings.Repeat("x", 129)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attrs.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	tooMany := Attributes{}
	for i := 0; i < 17; i++ {
		tooMany[fmt.Sprintf("k%d", i)] = "v"
	}
	assert.Error(t, tooMany.Validate())
}

func TestProduct_Available(t *testing.T) {
	p := Product{Stock: 10, Reserved: 3}
	assert.Equal(t, 7, p.Available())
	assert.Equal(t, 7, NewProductResponse(p).Available)
}
