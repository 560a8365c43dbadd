package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
)

var ErrNotFound = errors.New("product not found")

// Catalog persists product metadata. Save never overwrites the stock of an existing product.
type Catalog interface {
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	// Search returns products matching filter, ordered by filter.Sort.
	Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Product, error)
}

// Ledger owns per-product stock counts.
type Ledger interface {
	// Reserve atomically checks stock >= qty and decrements it, returning the new stock.
	// It fails with domain.ErrInsufficientStock and leaves stock unchanged otherwise.
	Reserve(ctx context.Context, productID int64, qty int) (int, error)
	// Release adds qty back to stock. It is only used as compensation.
	Release(ctx context.Context, productID int64, qty int) (int, error)
	Available(ctx context.Context, productID int64) (int, error)
}

// Seeder is implemented by ledgers that keep stock outside the catalog and need an initial count.
type Seeder interface {
	Seed(ctx context.Context, productID int64, stock int) error
}
