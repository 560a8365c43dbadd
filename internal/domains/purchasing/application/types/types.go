package types

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
)

var (
	ErrInvalidUserID    = errors.New("user id must be greater than zero")
	ErrInvalidProductID = errors.New("product id must be greater than zero")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrMissingMethod    = errors.New("payment method is required")
)

// PurchaseRequest is the single entry point input.
type PurchaseRequest struct {
	UserID         int64             `json:"userId"`
	ProductID      int64             `json:"productId"`
	Quantity       int               `json:"quantity"`
	PaymentMethod  string            `json:"paymentMethod"`
	PaymentDetails map[string]string `json:"paymentDetails,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	// IdempotencyKey identifies the purchase across retries. Generated when empty.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Validate checks shape only; existence checks happen in the service.
func (r PurchaseRequest) Validate() error {
	if r.UserID <= 0 {
		return ErrInvalidUserID
	}
	if r.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return ErrMissingMethod
	}
	return nil
}

// Receipt is returned for a paid purchase.
type Receipt struct {
	OrderID        int64                     `json:"orderId"`
	OrderNumber    string                    `json:"orderNumber"`
	TotalAmount    decimal.Decimal           `json:"totalAmount"`
	Currency       string                    `json:"currency"`
	PaymentID      string                    `json:"paymentId"`
	Status         orderdomain.Status        `json:"status"`
	PaymentStatus  orderdomain.PaymentStatus `json:"paymentStatus"`
	IdempotencyKey string                    `json:"idempotencyKey"`
	Replayed       bool                      `json:"replayed,omitempty"`
}

// ReturnReceipt describes a processed item return.
type ReturnReceipt struct {
	ReturnID        int64              `json:"returnId"`
	OrderID         int64              `json:"orderId"`
	ItemID          int64              `json:"itemId"`
	RefundedAmount  decimal.Decimal    `json:"refundedAmount"`
	RefundReference string             `json:"refundReference"`
	OrderStatus     orderdomain.Status `json:"orderStatus"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// OrderItemView is the read model of an order line.
type OrderItemView struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderView is the read model returned by order queries and transitions.
type OrderView struct {
	ID               int64                     `json:"id"`
	OrderNumber      string                    `json:"orderNumber"`
	UserID           int64                     `json:"userId"`
	Items            []OrderItemView           `json:"items"`
	TotalAmount      decimal.Decimal           `json:"totalAmount"`
	Currency         string                    `json:"currency"`
	Status           orderdomain.Status        `json:"status"`
	PaymentStatus    orderdomain.PaymentStatus `json:"paymentStatus"`
	PaymentMethod    string                    `json:"paymentMethod,omitempty"`
	PaymentReference string                    `json:"paymentReference,omitempty"`
	TrackingNumber   string                    `json:"trackingNumber,omitempty"`
	Notes            []string                  `json:"notes,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

// NewOrderView projects an order aggregate.
func NewOrderView(order *orderdomain.Order) *OrderView {
	if order == nil {
		return nil
	}
	view := &OrderView{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		TrackingNumber:   order.TrackingNumber,
		Notes:            append([]string(nil), order.Notes...),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
		})
	}
	return view
}

// StatsTicket acknowledges a scheduled stats report.
type StatsTicket struct {
	TaskID string `json:"taskId"`
	UserID int64  `json:"userId"`
}
