package purchasing

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/platform/temporal/sequences"
)

const (
	// PurchaseWorkflowName is the public identifier for registering the workflow.
	PurchaseWorkflowName = "purchasing.workflows.Purchase"
	// PurchaseTaskQueue is the queue consumed by the worker processing purchases.
	PurchaseTaskQueue = "PURCHASES"
)

// PurchaseWorkflowInput carries the purchase request and the caller's trace.
type PurchaseWorkflowInput struct {
	Request types.PurchaseRequest
	TraceID string
}

// PurchaseWorkflow runs a purchase durably, keyed by its idempotency key.
func PurchaseWorkflow(ctx workflow.Context, input PurchaseWorkflowInput) (*types.Receipt, error) {
	logger := workflow.GetLogger(ctx)
	key := input.Request.IdempotencyKey
	logger.Info("PurchaseWorkflow started", withTraceID(input.TraceID, "idempotencyKey", key)...)
	receipt, err := sequences.RunPurchaseSequence(ctx, input.Request)
	if err != nil {
		logger.Error("PurchaseWorkflow failed", withTraceID(input.TraceID, "idempotencyKey", key, "error", err)...)
		return nil, err
	}
	logger.Info("PurchaseWorkflow completed", withTraceID(input.TraceID, "orderNumber", receipt.OrderNumber)...)
	return receipt, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
