package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID  = errors.New("product id must be greater than zero")
	ErrEmptyName         = errors.New("product name is required")
	ErrEmptySKU          = errors.New("product sku is required")
	ErrInvalidPrice      = errors.New("product price must not be negative")
	ErrNegativeStock     = errors.New("product stock must not be negative")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a sellable catalog entry together with its stock count.
type Product struct {
	ID       int64
	Name     string
	SKU      string
	Category string
	Price    decimal.Decimal
	Stock    int
}

// NewProduct validates and constructs a product.
func NewProduct(id int64, name, sku string, price decimal.Decimal, stock int) (*Product, error) {
	product := &Product{
		ID:    id,
		Name:  strings.TrimSpace(name),
		SKU:   strings.TrimSpace(sku),
		Price: price,
		Stock: stock,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}

// Validate enforces catalog invariants. A zero ID is allowed for products not yet persisted.
func (p *Product) Validate() error {
	if p.ID < 0 {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.SKU) == "" {
		return ErrEmptySKU
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// ChangePrice updates the unit price. Existing orders keep their own snapshot.
func (p *Product) ChangePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	p.Price = price
	return nil
}

// Reserve decrements stock when enough is available. Callers serialize access per product.
func (p *Product) Reserve(qty int) error {
	if err := ValidateQuantity(qty); err != nil {
		return err
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

// Release returns previously reserved stock.
func (p *Product) Release(qty int) error {
	if err := ValidateQuantity(qty); err != nil {
		return err
	}
	p.Stock += qty
	return nil
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
