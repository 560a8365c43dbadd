// Package wallet adapts a wallet provider addressed by receiver identity.
package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var _ ports.Backend = (*Backend)(nil)

const BackendName = "wallet"

// PaymentStatus is the provider's native status enum.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentDenied    PaymentStatus = "DENIED"
	PaymentFailed    PaymentStatus = "FAILED"
)

const (
	defaultReceiver    = "merchant@example.com"
	defaultDescription = "E-commerce purchase"
)

// Money is the provider's amount shape.
type Money struct {
	Total    decimal.Decimal
	Currency string
}

// SendPaymentResponse is the provider's answer to SendPayment.
type SendPaymentResponse struct {
	PaymentStatus PaymentStatus
	PaymentID     string
	Amount        Money
	Description   string
}

// RefundResponse is the provider's answer to RefundPayment.
type RefundResponse struct {
	RefundID string
	Status   PaymentStatus
}

// Client is the native wallet API.
type Client interface {
	SendPayment(ctx context.Context, receiverEmail string, amount decimal.Decimal, description, requestID string) (SendPaymentResponse, error)
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, requestID string) (RefundResponse, error)
}

// Backend maps the uniform contract onto a wallet Client.
type Backend struct {
	client Client
}

func NewBackend(client Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Name() string { return BackendName }

func (b *Backend) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Backend:             BackendName,
		Features:            []string{"payments", "refunds", "international"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "CAD", "AUD"},
	}
}

func (b *Backend) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	if b == nil || b.client == nil {
		return domain.Result{}, errors.New("wallet client not configured")
	}
	receiver := req.Detail("receiver_email", defaultReceiver)
	description := req.Detail("description", defaultDescription)
	resp, err := b.client.SendPayment(ctx, receiver, req.Amount, description, req.IdempotencyKey)
	if err != nil {
		return domain.Result{}, err
	}
	currency := resp.Amount.Currency
	if currency == "" {
		currency = req.CurrencyOrDefault()
	}
	amount := resp.Amount.Total
	if amount.IsZero() {
		amount = req.Amount
	}
	status := MapStatus(resp.PaymentStatus)
	if status == domain.StatusSucceeded {
		return domain.Succeeded(resp.PaymentID, amount, currency, "wallet payment processed"), nil
	}
	result := domain.Failed(status, amount, currency, "wallet payment "+string(resp.PaymentStatus))
	result.Reference = resp.PaymentID
	return result, nil
}

func (b *Backend) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	if b == nil || b.client == nil {
		return domain.RefundResult{}, errors.New("wallet client not configured")
	}
	resp, err := b.client.RefundPayment(ctx, req.PaymentReference, req.Amount, req.IdempotencyKey)
	if err != nil {
		return domain.RefundResult{}, err
	}
	status := MapStatus(resp.Status)
	return domain.RefundResult{
		Success:          status == domain.StatusSucceeded,
		RefundReference:  resp.RefundID,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Status:           status,
		Message:          "wallet refund " + string(resp.Status),
	}, nil
}

// MapStatus normalizes the wallet enum. A pending payment is not captured, so it counts as declined.
func MapStatus(status PaymentStatus) domain.Status {
	switch status {
	case PaymentCompleted:
		return domain.StatusSucceeded
	case PaymentPending, PaymentDenied:
		return domain.StatusDeclined
	default:
		return domain.StatusError
	}
}
