package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
)

// Service exposes cart use cases to adapters.
type Service interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

// ProductLookup checks that a product exists before it enters a cart.
type ProductLookup interface {
	Exists(ctx context.Context, productID int64) (bool, error)
}
