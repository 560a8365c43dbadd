package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Return records a refunded item. It is never modified once stored.
type Return struct {
	ID              int64
	OrderID         int64
	ItemID          int64
	ProductID       int64
	Quantity        int
	Amount          decimal.Decimal
	Reason          string
	RefundReference string
	CreatedAt       time.Time
}

// NewReturn builds the record for refunding one item of the order.
func NewReturn(order *Order, item Item, reason, refundReference string, now time.Time) *Return {
	return &Return{
		OrderID:         order.ID,
		ItemID:          item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		Amount:          item.Subtotal(),
		Reason:          reason,
		RefundReference: refundReference,
		CreatedAt:       now,
	}
}
