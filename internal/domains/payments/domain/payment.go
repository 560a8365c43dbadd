package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the normalized outcome reported by every backend.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusDeclined  Status = "declined"
	StatusError     Status = "error"
)

// DefaultCurrency is used when a request does not name one.
const DefaultCurrency = "USD"

var (
	ErrInvalidAmount           = errors.New("payment amount must be greater than zero")
	ErrMissingMethod           = errors.New("payment method is required")
	ErrMissingIdempotencyKey   = errors.New("idempotency key is required")
	ErrMissingPaymentReference = errors.New("payment reference is required")
)

// AuthorizeRequest asks a backend to charge Amount. IdempotencyKey is supplied by the caller per order.
type AuthorizeRequest struct {
	IdempotencyKey string
	OrderNumber    string
	CustomerID     int64
	CustomerEmail  string
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Details        map[string]string
}

// Validate checks the fields every backend relies on.
func (r AuthorizeRequest) Validate() error {
	if strings.TrimSpace(r.Method) == "" {
		return ErrMissingMethod
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// CurrencyOrDefault returns the requested currency or DefaultCurrency.
func (r AuthorizeRequest) CurrencyOrDefault() string {
	if c := strings.TrimSpace(r.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

// Detail reads a backend-specific detail with a fallback.
func (r AuthorizeRequest) Detail(key, fallback string) string {
	if v := strings.TrimSpace(r.Details[key]); v != "" {
		return v
	}
	return fallback
}

// Result is the uniform authorize outcome.
type Result struct {
	Success   bool            `json:"success"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Backend   string          `json:"backend,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(reference string, amount decimal.Decimal, currency, message string) Result {
	return Result{Success: true, Reference: reference, Amount: amount, Currency: currency, Status: StatusSucceeded, Message: message}
}

// Failed builds a non-successful result with the given normalized status.
func Failed(status Status, amount decimal.Decimal, currency, message string) Result {
	return Result{Success: false, Amount: amount, Currency: currency, Status: status, Message: message}
}

// RefundRequest asks the backend that captured PaymentReference to return Amount.
type RefundRequest struct {
	IdempotencyKey   string
	Method           string
	PaymentReference string
	Amount           decimal.Decimal
	Currency         string
}

func (r RefundRequest) Validate() error {
	if strings.TrimSpace(r.Method) == "" {
		return ErrMissingMethod
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	if strings.TrimSpace(r.PaymentReference) == "" {
		return ErrMissingPaymentReference
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// RefundResult is the uniform refund outcome.
type RefundResult struct {
	Success          bool            `json:"success"`
	RefundReference  string          `json:"refundReference"`
	PaymentReference string          `json:"paymentReference"`
	Amount           decimal.Decimal `json:"amount"`
	Status           Status          `json:"status"`
	Message          string          `json:"message,omitempty"`
}

// Capabilities describes what a backend supports.
type Capabilities struct {
	Backend             string   `json:"backend"`
	Features            []string `json:"features"`
	Limitations         []string `json:"limitations,omitempty"`
	SupportedCurrencies []string `json:"supportedCurrencies"`
}
