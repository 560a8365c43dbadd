package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// SortOrder names a catalog ordering. The zero value keeps ID order.
type SortOrder string

const (
	SortByID        SortOrder = ""
	SortByName      SortOrder = "name"
	SortByPriceAsc  SortOrder = "price_asc"
	SortByPriceDesc SortOrder = "price_desc"
	// SortByNewest relies on IDs being assigned in insertion order.
	SortByNewest SortOrder = "newest"
)

var (
	ErrInvalidSort       = errors.New("unknown sort order")
	ErrInvalidPriceRange = errors.New("minimum price exceeds maximum price")
)

// SearchFilter narrows a catalog listing. Zero fields match everything.
type SearchFilter struct {
	// Keyword matches name or SKU, case-insensitively.
	Keyword  string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     SortOrder
}

// Normalize trims the filter and rejects unknown sorts and inverted price bounds.
func (f SearchFilter) Normalize() (SearchFilter, error) {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Category = strings.TrimSpace(f.Category)
	f.Sort = SortOrder(strings.ToLower(strings.TrimSpace(string(f.Sort))))
	switch f.Sort {
	case SortByID, SortByName, SortByPriceAsc, SortByPriceDesc, SortByNewest:
	default:
		return f, ErrInvalidSort
	}
	if (f.MinPrice != nil && f.MinPrice.IsNegative()) || (f.MaxPrice != nil && f.MaxPrice.IsNegative()) {
		return f, ErrInvalidPrice
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, ErrInvalidPriceRange
	}
	return f, nil
}

// IsZero reports whether the filter neither narrows nor reorders.
func (f SearchFilter) IsZero() bool {
	return f.Keyword == "" && f.Category == "" && f.MinPrice == nil && f.MaxPrice == nil && f.Sort == SortByID
}

func (f SearchFilter) Matches(p *Product) bool {
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(p.Name), kw) && !strings.Contains(strings.ToLower(p.SKU), kw) {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// Less orders a before b under the filter's sort. Ties fall back to ID.
func (f SearchFilter) Less(a, b *Product) bool {
	switch f.Sort {
	case SortByName:
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
	case SortByPriceAsc:
		if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
	case SortByPriceDesc:
		if !a.Price.Equal(b.Price) {
			return a.Price.GreaterThan(b.Price)
		}
	case SortByNewest:
		return a.ID > b.ID
	}
	return a.ID < b.ID
}
