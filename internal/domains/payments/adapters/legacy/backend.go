// Package legacy adapts the invoice-based processor that has no refund operation.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

var _ ports.Backend = (*Backend)(nil)

const BackendName = "legacy"

// ErrRejected is returned by processors that refuse a payment.
var ErrRejected = errors.New("legacy processor rejected payment")

// Receipt is the processor's answer to MakePayment.
type Receipt struct {
	TransactionID string
	Status        string
	Message       string
}

// CancelReceipt is the processor's answer to CancelPayment.
type CancelReceipt struct {
	Success bool
	Message string
}

// Processor is the native legacy API: customer and invoice in, transaction id out.
type Processor interface {
	MakePayment(ctx context.Context, customerID, invoiceNumber string, amount decimal.Decimal) (Receipt, error)
	CancelPayment(ctx context.Context, transactionID string) (CancelReceipt, error)
}

// Backend maps the uniform contract onto a legacy Processor.
type Backend struct {
	processor Processor
}

func NewBackend(processor Processor) *Backend {
	return &Backend{processor: processor}
}

func (b *Backend) Name() string { return BackendName }

func (b *Backend) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Backend:             BackendName,
		Features:            []string{"basic_payments", "cancellation"},
		Limitations:         []string{"no_refunds", "no_recurring_payments"},
		SupportedCurrencies: []string{"USD", "EUR"},
	}
}

func (b *Backend) Authorize(ctx context.Context, req domain.AuthorizeRequest) (domain.Result, error) {
	if b == nil || b.processor == nil {
		return domain.Result{}, errors.New("legacy payment processor not configured")
	}
	currency := req.CurrencyOrDefault()
	customerID := req.Detail("customer_id", strconv.FormatInt(req.CustomerID, 10))
	invoice := req.Detail("invoice_number", req.OrderNumber)
	if invoice == "" {
		invoice = req.IdempotencyKey
	}
	receipt, err := b.processor.MakePayment(ctx, customerID, invoice, req.Amount)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return domain.Failed(domain.StatusDeclined, req.Amount, currency, err.Error()), nil
		}
		return domain.Result{}, err
	}
	switch receipt.Status {
	case "completed":
		return domain.Succeeded(receipt.TransactionID, req.Amount, currency, receipt.Message), nil
	case "rejected":
		return domain.Failed(domain.StatusDeclined, req.Amount, currency, receipt.Message), nil
	default:
		return domain.Failed(domain.StatusError, req.Amount, currency, fmt.Sprintf("unexpected legacy status %q", receipt.Status)), nil
	}
}

// Refund cancels the whole transaction; the processor cannot return part of a payment.
func (b *Backend) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	if b == nil || b.processor == nil {
		return domain.RefundResult{}, errors.New("legacy payment processor not configured")
	}
	receipt, err := b.processor.CancelPayment(ctx, req.PaymentReference)
	if err != nil {
		return domain.RefundResult{}, err
	}
	result := domain.RefundResult{
		Success:          receipt.Success,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Message:          receipt.Message,
	}
	if receipt.Success {
		result.RefundReference = "REF-" + req.PaymentReference
		result.Status = domain.StatusSucceeded
	} else {
		result.Status = domain.StatusDeclined
	}
	return result, nil
}
