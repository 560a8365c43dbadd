package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
)

// Repository stores one cart per user. Get returns an empty cart for unknown users.
type Repository interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, userID int64) error
}
