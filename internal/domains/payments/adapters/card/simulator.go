package card

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ Client = (*Simulator)(nil)

// Simulator is an in-process card gateway honoring idempotency keys.
type Simulator struct {
	mu           sync.Mutex
	declineAbove decimal.Decimal
	byKey        map[string]ProcessResponse
	payments     map[string]decimal.Decimal
	refunds      map[string]RefundResponse
}

// NewSimulator declines charges above declineAbove; a zero limit accepts everything.
func NewSimulator(declineAbove decimal.Decimal) *Simulator {
	return &Simulator{
		declineAbove: declineAbove,
		byKey:        map[string]ProcessResponse{},
		payments:     map[string]decimal.Decimal{},
		refunds:      map[string]RefundResponse{},
	}
}

func (s *Simulator) Process(ctx context.Context, req ProcessRequest) (ProcessResponse, error) {
	if err := ctx.Err(); err != nil {
		return ProcessResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return resp, nil
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	resp := ProcessResponse{Amount: req.Amount, Currency: currency}
	if s.declineAbove.IsPositive() && req.Amount.GreaterThan(s.declineAbove) {
		resp.Status = "failed"
		resp.Message = "card declined"
	} else {
		resp.PaymentID = "PAY-" + strings.ToUpper(uuid.NewString()[:12])
		resp.Status = "success"
		s.payments[resp.PaymentID] = req.Amount
	}
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = resp
	}
	return resp, nil
}

func (s *Simulator) Refund(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	if err := ctx.Err(); err != nil {
		return RefundResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.refunds[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return resp, nil
	}
	remaining, ok := s.payments[req.PaymentID]
	if !ok {
		return RefundResponse{Amount: req.Amount, Status: "failed", Message: "payment not found"}, nil
	}
	if req.Amount.GreaterThan(remaining) {
		return RefundResponse{Amount: req.Amount, Status: "failed", Message: "refund exceeds captured amount"}, nil
	}
	s.payments[req.PaymentID] = remaining.Sub(req.Amount)
	resp := RefundResponse{RefundID: "REF-" + req.PaymentID, Amount: req.Amount, Status: "refunded"}
	if req.IdempotencyKey != "" {
		s.refunds[req.IdempotencyKey] = resp
	}
	return resp, nil
}
