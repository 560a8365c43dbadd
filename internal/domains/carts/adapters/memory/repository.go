package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps carts in memory keyed by user.
type Repository struct {
	mu    sync.RWMutex
	carts map[int64]*domain.Cart
}

func NewRepository() *Repository {
	return &Repository{carts: map[int64]*domain.Cart{}}
}

func (r *Repository) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cart, ok := r.carts[userID]; ok {
		return cart.Clone(), nil
	}
	return &domain.Cart{UserID: userID}, nil
}

func (r *Repository) Save(_ context.Context, cart *domain.Cart) error {
	if cart == nil {
		return errors.New("cart is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.UserID] = cart.Clone()
	return nil
}

func (r *Repository) Clear(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}
