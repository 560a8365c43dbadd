package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
)

// Service exposes catalog use cases to adapters.
type Service interface {
	AddProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	SearchProducts(ctx context.Context, filter domain.SearchFilter) ([]*domain.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error)
}
