package purchasing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	purchaseactivities "github.com/Apurer/go-storefront-api/internal/platform/temporal/activities/purchasing"
)

type stubService struct {
	ports.Service
	calls   int
	receipt *types.Receipt
	err     error
}

func (s *stubService) Purchase(context.Context, types.PurchaseRequest) (*types.Receipt, error) {
	s.calls++
	return s.receipt, s.err
}

func runPurchaseWorkflow(t *testing.T, svc *stubService) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := purchaseactivities.NewActivities(svc)
	env.RegisterActivityWithOptions(acts.Purchase, activity.RegisterOptions{Name: purchaseactivities.PurchaseActivityName})
	env.ExecuteWorkflow(PurchaseWorkflow, PurchaseWorkflowInput{
		Request: types.PurchaseRequest{UserID: 1, ProductID: 2, Quantity: 1, PaymentMethod: "paypal", IdempotencyKey: "wf-1"},
		TraceID: "trace-1",
	})
	require.True(t, env.IsWorkflowCompleted())
	return env
}

func TestPurchaseWorkflow_ReturnsReceipt(t *testing.T) {
	svc := &stubService{receipt: &types.Receipt{
		OrderID:     7,
		OrderNumber: "ORD-20260301-ABCDEF12",
		TotalAmount: decimal.RequireFromString("25.50"),
		Currency:    "USD",
		PaymentID:   "PAY-1",
		Status:      orderdomain.StatusPaid,
	}}
	env := runPurchaseWorkflow(t, svc)

	require.NoError(t, env.GetWorkflowError())
	var receipt types.Receipt
	require.NoError(t, env.GetWorkflowResult(&receipt))
	assert.Equal(t, int64(7), receipt.OrderID)
	assert.Equal(t, "25.50", receipt.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, svc.calls)
}

func TestPurchaseWorkflow_FailureIsNotRetried(t *testing.T) {
	svc := &stubService{err: application.NewError(application.KindInsufficientStock, "purchase", "", errors.New("stock 0"))}
	env := runPurchaseWorkflow(t, svc)

	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, string(application.KindInsufficientStock), appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, 1, svc.calls)
}
