package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
)

// ErrUnsupportedMethod is returned when no backend is bound to the requested method.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// Backend adapts one payment provider's native API to the uniform contract.
// Provider declines and timeouts are reported through the result status; a returned
// error means the request could not be attempted at all.
type Backend interface {
	Name() string
	Capabilities() domain.Capabilities
	Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error)
	Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error)
}

// Gateway routes payment calls to the backend bound to the request's method.
type Gateway interface {
	Supports(method string) bool
	Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error)
	Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error)
}

// MethodCatalog lists the methods a gateway accepts.
type MethodCatalog interface {
	Methods() map[string]domain.Capabilities
}
