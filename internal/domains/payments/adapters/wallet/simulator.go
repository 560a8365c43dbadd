package wallet

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ Client = (*Simulator)(nil)

// Simulator is an in-process wallet provider. Receivers listed as blocked are denied.
type Simulator struct {
	mu       sync.Mutex
	blocked  map[string]bool
	byID     map[string]SendPaymentResponse
	payments map[string]SendPaymentResponse
	refunds  map[string]RefundResponse
}

func NewSimulator(blockedReceivers ...string) *Simulator {
	blocked := make(map[string]bool, len(blockedReceivers))
	for _, r := range blockedReceivers {
		blocked[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return &Simulator{
		blocked:  blocked,
		byID:     map[string]SendPaymentResponse{},
		payments: map[string]SendPaymentResponse{},
		refunds:  map[string]RefundResponse{},
	}
}

func (s *Simulator) SendPayment(ctx context.Context, receiverEmail string, amount decimal.Decimal, description, requestID string) (SendPaymentResponse, error) {
	if err := ctx.Err(); err != nil {
		return SendPaymentResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.byID[requestID]; ok && requestID != "" {
		return resp, nil
	}
	resp := SendPaymentResponse{
		PaymentID:   "PAYPAL-" + strings.ToUpper(uuid.NewString()[:12]),
		Amount:      Money{Total: amount, Currency: "USD"},
		Description: description,
	}
	if s.blocked[strings.ToLower(receiverEmail)] {
		resp.PaymentStatus = PaymentDenied
	} else {
		resp.PaymentStatus = PaymentCompleted
		s.payments[resp.PaymentID] = resp
	}
	if requestID != "" {
		s.byID[requestID] = resp
	}
	return resp, nil
}

func (s *Simulator) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, requestID string) (RefundResponse, error) {
	if err := ctx.Err(); err != nil {
		return RefundResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.refunds[requestID]; ok && requestID != "" {
		return resp, nil
	}
	payment, ok := s.payments[paymentID]
	if !ok || amount.GreaterThan(payment.Amount.Total) {
		return RefundResponse{Status: PaymentDenied}, nil
	}
	resp := RefundResponse{RefundID: "PAYPAL-REF-" + paymentID, Status: PaymentCompleted}
	if requestID != "" {
		s.refunds[requestID] = resp
	}
	return resp, nil
}
