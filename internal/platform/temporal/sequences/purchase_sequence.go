package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	purchaseactivities "github.com/Apurer/go-storefront-api/internal/platform/temporal/activities/purchasing"
)

// RunPurchaseSequence executes the purchase activity exactly once. The saga compensates
// internally, so the workflow never retries a charge.
func RunPurchaseSequence(ctx workflow.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("purchase sequence started", "idempotencyKey", req.IdempotencyKey)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}

	var receipt types.Receipt
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), purchaseactivities.PurchaseActivityName, req).Get(ctx, &receipt)
	if err != nil {
		logger.Error("purchase sequence failed", "idempotencyKey", req.IdempotencyKey, "error", err)
		return nil, err
	}
	logger.Info("purchase sequence completed", "orderId", receipt.OrderID)
	return &receipt, nil
}
