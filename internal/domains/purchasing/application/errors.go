package application

import (
	"context"
	"errors"
	"fmt"

	invdomain "github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	invports "github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
	paydomain "github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	payports "github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	userports "github.com/Apurer/go-storefront-api/internal/domains/users/ports"
	"github.com/Apurer/go-storefront-api/internal/platform/taskqueue"
)

// Kind is the caller-visible failure category.
type Kind string

const (
	KindNotFound                 Kind = "NotFound"
	KindInsufficientStock        Kind = "InsufficientStock"
	KindUnsupportedPaymentMethod Kind = "UnsupportedPaymentMethod"
	KindPaymentDeclined          Kind = "PaymentDeclined"
	KindAlreadyPaid              Kind = "AlreadyPaid"
	KindInvalidStateTransition   Kind = "InvalidStateTransition"
	KindQueueFull                Kind = "QueueFull"
	KindInvalidInput             Kind = "InvalidInput"
	KindInternal                 Kind = "InternalError"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrPaymentDeclined          = errors.New("payment declined")
	ErrAlreadyPaid              = errors.New("order already paid")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrQueueFull                = errors.New("queue full")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInternal                 = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindNotFound:                 ErrNotFound,
	KindInsufficientStock:        ErrInsufficientStock,
	KindUnsupportedPaymentMethod: ErrUnsupportedPaymentMethod,
	KindPaymentDeclined:          ErrPaymentDeclined,
	KindAlreadyPaid:              ErrAlreadyPaid,
	KindInvalidStateTransition:   ErrInvalidStateTransition,
	KindQueueFull:                ErrQueueFull,
	KindInvalidInput:             ErrInvalidInput,
	KindInternal:                 ErrInternal,
}

// Error is the only error type the orchestrator returns.
// errors.Is matches both the kind sentinel and the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = sentinels[e.Kind].Error()
	}
	if e.Err != nil && e.Err.Error() != msg {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds an orchestrator error. Unknown kinds become KindInternal.
func NewError(kind Kind, op, message string, cause error) *Error {
	if _, ok := sentinels[kind]; !ok {
		kind = KindInternal
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// KindOf classifies any error; unrecognized errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(classify(err), op, "", err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, userports.ErrNotFound),
		errors.Is(err, invports.ErrNotFound),
		errors.Is(err, orderports.ErrNotFound),
		errors.Is(err, orderdomain.ErrItemNotFound):
		return KindNotFound
	case errors.Is(err, invdomain.ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, payports.ErrUnsupportedMethod):
		return KindUnsupportedPaymentMethod
	case errors.Is(err, orderdomain.ErrAlreadyPaid):
		return KindAlreadyPaid
	case errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderports.ErrConcurrentUpdate):
		return KindInvalidStateTransition
	case errors.Is(err, taskqueue.ErrQueueFull),
		errors.Is(err, taskqueue.ErrQueueClosed):
		return KindQueueFull
	case errors.Is(err, types.ErrInvalidUserID),
		errors.Is(err, types.ErrInvalidProductID),
		errors.Is(err, types.ErrInvalidQuantity),
		errors.Is(err, types.ErrMissingMethod),
		errors.Is(err, invdomain.ErrInvalidQuantity),
		errors.Is(err, paydomain.ErrInvalidAmount),
		errors.Is(err, paydomain.ErrMissingMethod),
		errors.Is(err, payports.ErrIdempotencyConflict):
		return KindInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindInternal
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
