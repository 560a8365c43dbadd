package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
)

// Service implements cart use cases.
type Service struct {
	repo     ports.Repository
	products ports.ProductLookup
	now      func() time.Time
}

// NewService wires the cart service. products may be nil to skip catalog checks.
func NewService(repo ports.Repository, products ports.ProductLookup) *Service {
	return &Service{repo: repo, products: products, now: time.Now}
}

func (s *Service) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if userID <= 0 {
		return nil, mapError(domain.ErrInvalidUserID)
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	if s.products != nil && productID > 0 {
		ok, err := s.products.Exists(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
		}
	}
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(productID, quantity, s.now().UTC()); err != nil {
		return nil, mapError(err)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(productID, s.now().UTC()); err != nil {
		return nil, mapError(err)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.repo.Clear(ctx, userID)
}

var _ ports.Service = (*Service)(nil)
