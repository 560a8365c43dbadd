package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
	StatusFailed    Status = "failed"
)

// PaymentStatus tracks money movement independently of fulfilment.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrEmptyItems        = errors.New("order must contain at least one item")
	ErrInvalidUserID     = errors.New("user id must be greater than zero")
	ErrInvalidProductID  = errors.New("product id must be greater than zero")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("unit price must not be negative")
	ErrItemNotFound      = errors.New("order item not found")
)

var validNext = map[Status][]Status{
	StatusCreated:   {StatusPaid, StatusCancelled, StatusFailed},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {StatusReturned},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Item is an immutable snapshot of a purchased product.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal is UnitPrice multiplied by Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) validate() error {
	if i.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Order is the purchase aggregate. Items and TotalAmount are frozen at creation.
type Order struct {
	ID               int64
	OrderNumber      string
	UserID           int64
	Items            []Item
	TotalAmount      decimal.Decimal
	Currency         string
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentMethod    string
	PaymentReference string
	IdempotencyKey   string
	TrackingNumber   string
	Notes            []string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder snapshots items and computes the total.
func NewOrder(userID int64, items []Item, currency string, now time.Time) (*Order, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	snapshot := make([]Item, len(items))
	total := decimal.Zero
	for i, item := range items {
		if err := item.validate(); err != nil {
			return nil, err
		}
		snapshot[i] = item
		total = total.Add(item.Subtotal())
	}
	return &Order{
		OrderNumber:   NewOrderNumber(now),
		UserID:        userID,
		Items:         snapshot,
		TotalAmount:   total,
		Currency:      currency,
		Status:        StatusCreated,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewOrderNumber formats ORD-YYYYMMDD-XXXXXXXX with eight upper-case hex characters.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Item returns the item with the given identifier.
func (o *Order) Item(itemID int64) (Item, error) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

// MarkPaid records a captured payment.
func (o *Order) MarkPaid(method, reference string, now time.Time) error {
	if o.PaymentStatus == PaymentPaid || o.Status == StatusPaid {
		return ErrAlreadyPaid
	}
	if err := o.transition(StatusPaid, now); err != nil {
		return err
	}
	o.PaymentStatus = PaymentPaid
	o.PaymentMethod = method
	o.PaymentReference = reference
	return nil
}

// MarkFailed records that payment did not go through.
func (o *Order) MarkFailed(reason string, now time.Time) error {
	if err := o.transition(StatusFailed, now); err != nil {
		return err
	}
	o.PaymentStatus = PaymentFailed
	o.AddNote(reason)
	return nil
}

func (o *Order) Ship(trackingNumber string, now time.Time) error {
	if err := o.transition(StatusShipped, now); err != nil {
		return err
	}
	o.TrackingNumber = strings.TrimSpace(trackingNumber)
	return nil
}

func (o *Order) Deliver(now time.Time) error {
	return o.transition(StatusDelivered, now)
}

// Cancel is allowed from created or paid. Refunding a paid order is recorded separately.
func (o *Order) Cancel(reason string, now time.Time) error {
	if err := o.transition(StatusCancelled, now); err != nil {
		return err
	}
	o.AddNote(reason)
	return nil
}

func (o *Order) MarkReturned(reason string, now time.Time) error {
	if err := o.transition(StatusReturned, now); err != nil {
		return err
	}
	o.AddNote(reason)
	return nil
}

// MarkRefunded records that captured money went back to the customer.
func (o *Order) MarkRefunded(now time.Time) {
	o.PaymentStatus = PaymentRefunded
	o.UpdatedAt = now
}

// AddNote appends a non-empty note.
func (o *Order) AddNote(note string) {
	if note = strings.TrimSpace(note); note != "" {
		o.Notes = append(o.Notes, note)
	}
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	clone.Notes = append([]string(nil), o.Notes...)
	return &clone
}

func (o *Order) transition(to Status, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}
