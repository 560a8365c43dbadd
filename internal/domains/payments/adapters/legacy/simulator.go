package legacy

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var _ Processor = (*Simulator)(nil)

// Simulator is an in-process legacy processor. Invoices are unique, so paying the same
// invoice twice returns the original transaction.
type Simulator struct {
	mu           sync.Mutex
	declineAbove decimal.Decimal
	byInvoice    map[string]Receipt
	cancelled    map[string]bool
}

// NewSimulator rejects payments above declineAbove; a zero limit accepts everything.
func NewSimulator(declineAbove decimal.Decimal) *Simulator {
	return &Simulator{
		declineAbove: declineAbove,
		byInvoice:    map[string]Receipt{},
		cancelled:    map[string]bool{},
	}
}

func (s *Simulator) MakePayment(ctx context.Context, customerID, invoiceNumber string, amount decimal.Decimal) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if receipt, ok := s.byInvoice[invoiceNumber]; ok {
		return receipt, nil
	}
	if s.declineAbove.IsPositive() && amount.GreaterThan(s.declineAbove) {
		return Receipt{Status: "rejected", Message: "amount exceeds legacy processor limit"}, nil
	}
	receipt := Receipt{
		TransactionID: fmt.Sprintf("TX%s%s", customerID, invoiceNumber),
		Status:        "completed",
		Message:       "Payment processed successfully via legacy system",
	}
	s.byInvoice[invoiceNumber] = receipt
	return receipt, nil
}

func (s *Simulator) CancelPayment(ctx context.Context, transactionID string) (CancelReceipt, error) {
	if err := ctx.Err(); err != nil {
		return CancelReceipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, receipt := range s.byInvoice {
		if receipt.TransactionID != transactionID {
			continue
		}
		s.cancelled[transactionID] = true
		return CancelReceipt{Success: true, Message: fmt.Sprintf("Transaction %s canceled", transactionID)}, nil
	}
	return CancelReceipt{Success: false, Message: fmt.Sprintf("Transaction %s not found", transactionID)}, nil
}
