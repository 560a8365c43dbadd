package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	purchaseworkflows "github.com/Apurer/go-storefront-api/internal/platform/temporal/workflows/purchasing"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalPurchaseWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlinePurchaseWorkflows)(nil)
)

// TemporalPurchaseWorkflows starts purchase workflows on a Temporal cluster.
type TemporalPurchaseWorkflows struct {
	client    client.Client
	taskQueue string
}

func NewTemporalPurchaseWorkflows(c client.Client) *TemporalPurchaseWorkflows {
	return &TemporalPurchaseWorkflows{client: c, taskQueue: purchaseworkflows.PurchaseTaskQueue}
}

// Purchase starts or joins the workflow for the request's idempotency key and waits for its receipt.
func (o *TemporalPurchaseWorkflows) Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal purchase workflows not configured")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	workflowID := purchaseWorkflowID(req.IdempotencyKey)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		purchaseworkflows.PurchaseWorkflow,
		purchaseworkflows.PurchaseWorkflowInput{Request: req, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, application.NewError(application.KindInternal, "purchase", "workflow could not be started", err)
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var receipt types.Receipt
	if err := run.Get(ctx, &receipt); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &receipt, nil
}

// InlinePurchaseWorkflows runs the saga in-process, for tests and deployments without Temporal.
type InlinePurchaseWorkflows struct {
	service ports.Service
}

func NewInlinePurchaseWorkflows(service ports.Service) *InlinePurchaseWorkflows {
	return &InlinePurchaseWorkflows{service: service}
}

func (o *InlinePurchaseWorkflows) Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline purchase workflows not configured")
	}
	return o.service.Purchase(ctx, req)
}

// fromWorkflowError restores the orchestrator error kind carried as the application error type.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return application.NewError(application.Kind(appErr.Type()), "purchase", appErr.Error(), err)
	}
	return application.NewError(application.KindInternal, "purchase", "workflow failed", err)
}

func purchaseWorkflowID(key string) string {
	return fmt.Sprintf("purchase-idem-%s", hashIdempotencyKey(key))
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
