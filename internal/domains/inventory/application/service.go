package application

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
)

// Service manages the product catalog. Stock counts are always read through the ledger.
type Service struct {
	catalog ports.Catalog
	ledger  ports.Ledger
}

func NewService(catalog ports.Catalog, ledger ports.Ledger) *Service {
	return &Service{catalog: catalog, ledger: ledger}
}

// AddProduct persists a new product and seeds its stock in ledgers that track stock separately.
func (s *Service) AddProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.catalog.Save(ctx, product)
	if err != nil {
		return nil, mapError(err)
	}
	if seeder, ok := s.ledger.(ports.Seeder); ok {
		if err := seeder.Seed(ctx, saved.ID, product.Stock); err != nil {
			return nil, err
		}
	}
	return s.withStock(ctx, saved)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withStock(ctx, product)
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withStockAll(ctx, products)
}

// SearchProducts filters and orders the catalog by keyword, category and price.
func (s *Service) SearchProducts(ctx context.Context, filter domain.SearchFilter) ([]*domain.Product, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, mapError(err)
	}
	products, err := s.catalog.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.withStockAll(ctx, products)
}

// UpdatePrice changes the unit price used for future orders.
func (s *Service) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	product, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.ChangePrice(price); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.catalog.Save(ctx, product)
	if err != nil {
		return nil, mapError(err)
	}
	return s.withStock(ctx, saved)
}

func (s *Service) withStockAll(ctx context.Context, products []*domain.Product) ([]*domain.Product, error) {
	for i, product := range products {
		withStock, err := s.withStock(ctx, product)
		if err != nil {
			return nil, err
		}
		products[i] = withStock
	}
	return products, nil
}

func (s *Service) withStock(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if s.ledger == nil {
		return product, nil
	}
	stock, err := s.ledger.Available(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	product.Stock = stock
	return product, nil
}

var _ ports.Service = (*Service)(nil)
