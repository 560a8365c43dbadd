package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
)

var (
	ErrNotFound             = errors.New("order not found")
	ErrConcurrentUpdate     = errors.New("order was modified concurrently")
	ErrDuplicateIdempotency = errors.New("order with this idempotency key already exists")
)

// Repository persists orders. Create writes the order and its items as one unit.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	// Update persists status fields when order.Version matches the stored version.
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	// RecordReturn stores the return and the order update in one transaction.
	RecordReturn(ctx context.Context, order *domain.Order, ret *domain.Return) (*domain.Return, error)
	ListReturns(ctx context.Context, orderID int64) ([]*domain.Return, error)
}
