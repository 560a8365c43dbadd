package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/users/domain"
)

// Service exposes user bounded context use cases to adapters.
type Service interface {
	Register(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateContact(ctx context.Context, id int64, email, phone, deviceToken string) (*domain.User, error)
}
