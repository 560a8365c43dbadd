package observability

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
)

type stubService struct {
	ports.Service
	purchaseErr error
}

func (s *stubService) Purchase(_ context.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	if s.purchaseErr != nil {
		return nil, s.purchaseErr
	}
	return &types.Receipt{OrderID: 7, OrderNumber: "ORD-20260301-ABCDEF12", TotalAmount: decimal.NewFromInt(30), IdempotencyKey: req.IdempotencyKey}, nil
}

func newDecorated(t *testing.T, inner ports.Service) (ports.Service, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return New(inner, WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test"))), recorder, reader
}

func outcomes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				out[outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestService_PurchaseSuccessIsTracedAndCounted(t *testing.T) {
	svc, recorder, reader := newDecorated(t, &stubService{})

	receipt, err := svc.Purchase(context.Background(), types.PurchaseRequest{UserID: 1, ProductID: 2, Quantity: 1, PaymentMethod: "credit_card", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.OrderID)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "PurchasingService.Purchase", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, int64(1), outcomes(t, reader)["ok"])
}

func TestService_PurchaseFailureRecordsKind(t *testing.T) {
	cause := application.NewError(application.KindInsufficientStock, "purchase", "only 1 left", nil)
	svc, recorder, reader := newDecorated(t, &stubService{purchaseErr: cause})

	_, err := svc.Purchase(context.Background(), types.PurchaseRequest{UserID: 1, ProductID: 2, Quantity: 5, PaymentMethod: "credit_card"})
	require.ErrorIs(t, err, application.ErrInsufficientStock)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	var kind string
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "error.kind" {
			kind = attr.Value.AsString()
		}
	}
	assert.Equal(t, "InsufficientStock", kind)
	assert.Equal(t, int64(1), outcomes(t, reader)["InsufficientStock"])
}
