package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid cart input")
	// ErrUnknownProduct is returned when adding a product the catalog does not know.
	ErrUnknownProduct = errors.New("unknown product")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidUserID) ||
		errors.Is(err, domain.ErrInvalidProductID) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrLineNotFound) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
