package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
)

// WorkflowOrchestrator runs purchases either inline or on a durable workflow engine.
type WorkflowOrchestrator interface {
	Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error)
}
