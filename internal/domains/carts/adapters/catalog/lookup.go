package catalog

import (
	"context"
	"errors"

	cartports "github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
	invports "github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
)

var _ cartports.ProductLookup = (*Lookup)(nil)

// Lookup answers cart product checks from the inventory catalog.
type Lookup struct {
	catalog invports.Catalog
}

func NewLookup(catalog invports.Catalog) *Lookup {
	return &Lookup{catalog: catalog}
}

func (l *Lookup) Exists(ctx context.Context, productID int64) (bool, error) {
	if _, err := l.catalog.GetByID(ctx, productID); err != nil {
		if errors.Is(err, invports.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
