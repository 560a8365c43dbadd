package wallet

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
)

func TestMapStatus(t *testing.T) {
	cases := map[PaymentStatus]domain.Status{
		PaymentCompleted: domain.StatusSucceeded,
		PaymentPending:   domain.StatusDeclined,
		PaymentDenied:    domain.StatusDeclined,
		PaymentFailed:    domain.StatusError,
		"REVERSED":       domain.StatusError,
	}
	for native, want := range cases {
		require.Equal(t, want, MapStatus(native), string(native))
	}
}

func TestBackend_AuthorizeUsesReceiverDetail(t *testing.T) {
	backend := NewBackend(NewSimulator("blocked@example.com"))
	ctx := context.Background()
	req := domain.AuthorizeRequest{
		IdempotencyKey: "wallet-key",
		OrderNumber:    "ORD-1",
		Amount:         decimal.NewFromInt(30),
		Method:         "paypal",
		Details:        map[string]string{"receiver_email": "blocked@example.com"},
	}

	declined, err := backend.Authorize(ctx, req)
	require.NoError(t, err)
	require.False(t, declined.Success)
	require.Equal(t, domain.StatusDeclined, declined.Status)

	req.IdempotencyKey = "wallet-key-2"
	req.Details = nil
	paid, err := backend.Authorize(ctx, req)
	require.NoError(t, err)
	require.True(t, paid.Success)
	require.Equal(t, "USD", paid.Currency)

	refund, err := backend.Refund(ctx, domain.RefundRequest{
		IdempotencyKey:   "wallet-key-2:refund",
		PaymentReference: paid.Reference,
		Amount:           decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	require.True(t, refund.Success)
	require.Equal(t, "PAYPAL-REF-"+paid.Reference, refund.RefundReference)
}
