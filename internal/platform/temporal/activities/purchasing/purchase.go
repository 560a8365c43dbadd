package purchasing

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
)

// PurchaseActivityName runs one purchase saga against the local collaborators.
const PurchaseActivityName = "purchasing.activities.Purchase"

// Activities groups activities that drive the purchasing orchestrator.
type Activities struct {
	service ports.Service
}

func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// Purchase executes the saga. Failures are returned as non-retryable application
// errors whose type is the orchestrator error kind, so callers can map them back.
func (a *Activities) Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("purchase activity not initialized", "idempotencyKey", req.IdempotencyKey)
		return nil, errors.New("purchase activity not initialized")
	}
	logger.Info("Purchase activity started", "userId", req.UserID, "productId", req.ProductID, "idempotencyKey", req.IdempotencyKey)
	receipt, err := a.service.Purchase(ctx, req)
	if err != nil {
		kind := application.KindOf(err)
		logger.Error("Purchase activity failed", "idempotencyKey", req.IdempotencyKey, "kind", string(kind), "error", err)
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), string(kind), err)
	}
	logger.Info("Purchase activity completed", "orderId", receipt.OrderID, "orderNumber", receipt.OrderNumber)
	return receipt, nil
}
