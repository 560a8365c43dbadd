package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
)

// Observer receives every message published by a subject.
type Observer interface {
	Name() string
	Update(ctx context.Context, msg domain.Message) error
}

// Notifier publishes a message to all attached observers.
type Notifier interface {
	Notify(ctx context.Context, msg domain.Message) error
}
