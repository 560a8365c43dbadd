// Package card adapts the amount/details card gateway that reports payment ids and currency.
package card

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var _ ports.Backend = (*Backend)(nil)

const BackendName = "card"

// ProcessRequest is the native charge payload.
type ProcessRequest struct {
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Details        map[string]string `json:"details,omitempty"`
	Reference      string            `json:"reference,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// ProcessResponse is the native charge answer.
type ProcessResponse struct {
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
}

// RefundRequest is the native refund payload.
type RefundRequest struct {
	PaymentID      string          `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"-"`
}

// RefundResponse is the native refund answer.
type RefundResponse struct {
	RefundID string          `json:"refund_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
}

// Client is the native card gateway API.
type Client interface {
	Process(ctx context.Context, req ProcessRequest) (ProcessResponse, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResponse, error)
}

// Backend maps the uniform contract onto a card gateway Client.
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
		Features:            []string{"payments", "refunds", "recurring", "subscriptions"},
		SupportedCurrencies: []string{"USD", "EUR"},
	}
}

func (b *Backend) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	if b == nil || b.client == nil {
		return domain.Result{}, errors.New("card gateway client not configured")
	}
	resp, err := b.client.Process(ctx, ProcessRequest{
		Amount:         req.Amount,
		Currency:       req.CurrencyOrDefault(),
		Details:        req.Details,
		Reference:      req.OrderNumber,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return domain.Result{}, err
	}
	currency := resp.Currency
	if currency == "" {
		currency = req.CurrencyOrDefault()
	}
	amount := resp.Amount
	if amount.IsZero() {
		amount = req.Amount
	}
	switch resp.Status {
	case "success":
		return domain.Succeeded(resp.PaymentID, amount, currency, resp.Message), nil
	case "failed", "declined":
		result := domain.Failed(domain.StatusDeclined, amount, currency, resp.Message)
		result.Reference = resp.PaymentID
		return result, nil
	default:
		return domain.Failed(domain.StatusError, amount, currency, "unexpected card gateway status "+resp.Status), nil
	}
}

func (b *Backend) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	if b == nil || b.client == nil {
		return domain.RefundResult{}, errors.New("card gateway client not configured")
	}
	resp, err := b.client.Refund(ctx, RefundRequest{
		PaymentID:      req.PaymentReference,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return domain.RefundResult{}, err
	}
	result := domain.RefundResult{
		RefundReference:  resp.RefundID,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Message:          resp.Message,
	}
	switch resp.Status {
	case "refunded":
		result.Success = true
		result.Status = domain.StatusSucceeded
	case "failed", "declined":
		result.Status = domain.StatusDeclined
	default:
		result.Status = domain.StatusError
	}
	return result, nil
}
