package ports

import (
	"context"

	userdomain "github.com/Apurer/go-storefront-api/internal/domains/users/domain"
	"github.com/Apurer/go-storefront-api/internal/platform/taskqueue"
)

// UserDirectory resolves purchasing customers.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
}

// Scheduler accepts post-commit side work. Implementations must not block.
type Scheduler interface {
	Enqueue(ctx context.Context, task taskqueue.Task) error
}
