package service

import (
	"context"
	"strings"

	"kartcore/internal/model"
	"kartcore/internal/repository"

	"github.com/rs/zerolog"
)

const maxCartQuantity = 1000

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// Get returns the cart with each line priced from the catalogue. Lines whose
// product has been removed are reported with a zero price.
func (s *cartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewInvalidRequestError("user id is required")
	}

	items, err := s.cartRepo.List(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError(err)
	}

	cart := &model.Cart{Items: items}
	if len(items) == 0 {
		cart.Items = []model.CartItem{}
		return cart, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for i := range cart.Items {
		p, ok := byID[cart.Items[i].ProductID]
		if !ok {
			s.logger.Warn().
				Str("user_id", userID).
				Str("product_id", cart.Items[i].ProductID).
				Msg("cart line references a missing product")
			continue
		}
		cart.Items[i].Name = p.Name
		cart.Items[i].UnitPrice = p.Price
		cart.SubTotal += p.Price * int64(cart.Items[i].Quantity)
	}
	return cart, nil
}

// PutItem validates the line against the catalogue before storing it.
func (s *cartService) PutItem(ctx context.Context, userID string, req *model.CartItemRequest) (*model.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewInvalidRequestError("user id is required")
	}
	if req == nil || strings.TrimSpace(req.ProductID) == "" {
		return nil, model.NewInvalidRequestError("product id is required")
	}
	if req.Quantity < 0 || req.Quantity > maxCartQuantity {
		return nil, model.ErrInvalidQuantity
	}
	if err := req.Attributes.Validate(); err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		if err := s.cartRepo.Remove(ctx, userID, req.ProductID); err != nil {
			return nil, model.NewStorageError(err)
		}
		s.logger.Debug().Str("user_id", userID).Str("product_id", req.ProductID).Msg("cart line removed")
		return s.Get(ctx, userID)
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, model.NewStorageError(err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(req.ProductID)
	}

	err = s.cartRepo.Upsert(ctx, model.CartItem{
		UserID:     userID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Attributes: req.Attributes,
	})
	if err != nil {
		return nil, model.NewStorageError(err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("product_id", req.ProductID).
		Int("quantity", req.Quantity).
		Msg("cart line stored")

	return s.Get(ctx, userID)
}
