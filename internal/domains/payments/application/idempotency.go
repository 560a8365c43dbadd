package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
)

type normalizedAuthorize struct {
	OrderNumber string         `json:"orderNumber"`
	CustomerID  int64          `json:"customerId"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	Method      string         `json:"method"`
	Details     []normalizedKV `json:"details,omitempty"`
}

type normalizedRefund struct {
	Method           string `json:"method"`
	PaymentReference string `json:"paymentReference"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

type normalizedKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FingerprintAuthorize hashes the authorize payload, excluding the idempotency key.
func FingerprintAuthorize(req domain.AuthorizeRequest) (string, error) {
	details := make([]normalizedKV, 0, len(req.Details))
	for k, v := range req.Details {
		details = append(details, normalizedKV{Key: k, Value: v})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Key < details[j].Key })
	return fingerprint(normalizedAuthorize{
		OrderNumber: req.OrderNumber,
		CustomerID:  req.CustomerID,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.CurrencyOrDefault(),
		Method:      normalizeMethod(req.Method),
		Details:     details,
	})
}

// FingerprintRefund hashes the refund payload, excluding the idempotency key.
func FingerprintRefund(req domain.RefundRequest) (string, error) {
	return fingerprint(normalizedRefund{
		Method:           normalizeMethod(req.Method),
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		Amount:           req.Amount.StringFixed(2),
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
}

func fingerprint(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
