package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	cartports "github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
	invports "github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
	notifports "github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
	paydomain "github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	payports "github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	userdomain "github.com/Apurer/go-storefront-api/internal/domains/users/domain"
)

// Dependencies are the collaborators the orchestrator sequences.
type Dependencies struct {
	Users     ports.UserDirectory
	Catalog   invports.Catalog
	Ledger    invports.Ledger
	Orders    orderports.Repository
	Carts     cartports.Repository
	Gateway   payports.Gateway
	Notifier  notifports.Notifier
	Scheduler ports.Scheduler
}

func (d Dependencies) validate() error {
	var missing []string
	if d.Users == nil {
		missing = append(missing, "users")
	}
	if d.Catalog == nil {
		missing = append(missing, "catalog")
	}
	if d.Ledger == nil {
		missing = append(missing, "ledger")
	}
	if d.Orders == nil {
		missing = append(missing, "orders")
	}
	if d.Gateway == nil {
		missing = append(missing, "gateway")
	}
	if len(missing) > 0 {
		return fmt.Errorf("purchasing service missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Service is the purchase saga coordinator.
type Service struct {
	deps     Dependencies
	logger   *slog.Logger
	now      func() time.Time
	currency string

	retries       uint64
	retryInterval time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCompensationRetry bounds how often a compensating write is retried.
func WithCompensationRetry(retries uint64, initial time.Duration) Option {
	return func(s *Service) {
		s.retries = retries
		if initial > 0 {
			s.retryInterval = initial
		}
	}
}

// WithCurrency sets the currency used when a request does not name one.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if c := strings.TrimSpace(currency); c != "" {
			s.currency = strings.ToUpper(c)
		}
	}
}

func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &Service{
		deps:     deps,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		currency: paydomain.DefaultCurrency,

		retries:       3,
		retryInterval: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

var _ ports.Service = (*Service)(nil)

// Purchase reserves stock, persists the order, charges the customer and compensates on failure.
func (s *Service) Purchase(ctx context.Context, req types.PurchaseRequest) (receipt *types.Receipt, err error) {
	const op = "purchase"
	defer s.recoverPanic(ctx, op, &err)

	if err := req.Validate(); err != nil {
		return nil, mapError(op, err)
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	existing, err := s.deps.Orders.GetByIdempotencyKey(ctx, key)
	switch {
	case err == nil:
		return s.replay(op, existing)
	case !errors.Is(err, orderports.ErrNotFound):
		return nil, NewError(KindInternal, op, "idempotency lookup failed", err)
	}

	user, err := s.deps.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, mapError(op, err)
	}
	product, err := s.deps.Catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if !s.deps.Gateway.Supports(method) {
		return nil, NewError(KindUnsupportedPaymentMethod, op, fmt.Sprintf("payment method %q is not supported", method), payports.ErrUnsupportedMethod)
	}

	if _, err := s.deps.Ledger.Reserve(ctx, product.ID, req.Quantity); err != nil {
		return nil, mapError(op, err)
	}
	// Stock is held from here on; persistence and compensation outlive the caller.
	detached := context.WithoutCancel(ctx)

	currency := s.currency
	if c := strings.TrimSpace(req.Currency); c != "" {
		currency = strings.ToUpper(c)
	}
	now := s.now().UTC()
	order, err := orderdomain.NewOrder(user.ID, []orderdomain.Item{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		UnitPrice:   product.Price,
	}}, currency, now)
	if err != nil {
		s.release(detached, product.ID, req.Quantity)
		return nil, NewError(KindInvalidInput, op, "", err)
	}
	order.IdempotencyKey = key

	created, err := s.deps.Orders.Create(detached, order)
	if err != nil {
		s.release(detached, product.ID, req.Quantity)
		if errors.Is(err, orderports.ErrDuplicateIdempotency) {
			if winner, lookupErr := s.deps.Orders.GetByIdempotencyKey(detached, key); lookupErr == nil {
				return s.replay(op, winner)
			}
		}
		return nil, NewError(KindInternal, op, "order could not be persisted", err)
	}

	result, err := s.deps.Gateway.Authorize(ctx, paydomain.AuthorizeRequest{
		IdempotencyKey: key,
		OrderNumber:    created.OrderNumber,
		CustomerID:     user.ID,
		CustomerEmail:  user.Email,
		Amount:         created.TotalAmount,
		Currency:       created.Currency,
		Method:         method,
		Details:        req.PaymentDetails,
	})
	if err != nil {
		s.failPurchase(detached, created, "payment could not be attempted: "+err.Error())
		return nil, mapError(op, err)
	}
	if !result.Success {
		reason := result.Message
		if reason == "" {
			reason = string(result.Status)
		}
		s.failPurchase(detached, created, "payment "+string(result.Status)+": "+reason)
		return nil, NewError(KindPaymentDeclined, op, "payment "+string(result.Status)+": "+reason, nil)
	}

	paid := created.Clone()
	if err := paid.MarkPaid(method, result.Reference, s.now().UTC()); err != nil {
		s.compensateCharge(detached, created, method, result)
		return nil, mapError(op, err)
	}
	persisted, err := s.deps.Orders.Update(detached, paid)
	if err != nil {
		s.compensateCharge(detached, created, method, result)
		return nil, NewError(KindInternal, op, "paid order could not be persisted", err)
	}

	s.clearCart(detached, user.ID)
	s.dispatch(detached, s.orderMessage(persisted, user, eventPaid))

	return receiptFor(persisted, false), nil
}

// ProcessReturn refunds one delivered item and restores its stock.
func (s *Service) ProcessReturn(ctx context.Context, orderID, itemID int64, reason string) (receipt *types.ReturnReceipt, err error) {
	const op = "process return"
	defer s.recoverPanic(ctx, op, &err)

	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if !orderdomain.CanTransition(order.Status, orderdomain.StatusReturned) {
		return nil, NewError(KindInvalidStateTransition, op, fmt.Sprintf("order in status %s cannot be returned", order.Status), orderdomain.ErrInvalidTransition)
	}
	item, err := order.Item(itemID)
	if err != nil {
		return nil, mapError(op, err)
	}

	refund, err := s.deps.Gateway.Refund(ctx, paydomain.RefundRequest{
		IdempotencyKey:   fmt.Sprintf("%s:return:%d", order.IdempotencyKey, item.ID),
		Method:           order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		Amount:           item.Subtotal(),
		Currency:         order.Currency,
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	if !refund.Success {
		return nil, NewError(KindPaymentDeclined, op, "refund "+string(refund.Status)+": "+refund.Message, nil)
	}
	// The money has moved; finish the bookkeeping even if the caller is gone.
	detached := context.WithoutCancel(ctx)

	if _, err := s.deps.Ledger.Release(detached, item.ProductID, item.Quantity); err != nil {
		s.logger.LogAttrs(detached, slog.LevelError, "stock release after refund failed",
			slog.Int64("order.id", order.ID),
			slog.Int64("product.id", item.ProductID),
			slog.String("refund.reference", refund.RefundReference),
			slog.String("error", err.Error()),
		)
		return nil, NewError(KindInternal, op, "stock could not be restored", err)
	}

	now := s.now().UTC()
	returned := order.Clone()
	if err := returned.MarkReturned(reason, now); err != nil {
		s.reReserve(detached, item)
		return nil, mapError(op, err)
	}
	if item.Subtotal().Equal(order.TotalAmount) {
		returned.MarkRefunded(now)
	}
	saved, err := s.deps.Orders.RecordReturn(detached, returned, orderdomain.NewReturn(returned, item, reason, refund.RefundReference, now))
	if err != nil {
		s.reReserve(detached, item)
		s.logger.LogAttrs(detached, slog.LevelError, "return could not be recorded after refund",
			slog.Int64("order.id", order.ID),
			slog.String("refund.reference", refund.RefundReference),
			slog.String("error", err.Error()),
		)
		return nil, mapError(op, err)
	}

	user := s.recipientUser(detached, order.UserID)
	msg := s.orderMessage(returned, user, eventReturned).With("refund.amount", item.Subtotal().StringFixed(2))
	s.dispatch(detached, msg)

	return &types.ReturnReceipt{
		ReturnID:        saved.ID,
		OrderID:         order.ID,
		ItemID:          item.ID,
		RefundedAmount:  saved.Amount,
		RefundReference: saved.RefundReference,
		OrderStatus:     orderdomain.StatusReturned,
		CreatedAt:       saved.CreatedAt,
	}, nil
}

// CancelOrder cancels a created or paid order, refunding and releasing its stock.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string) (view *types.OrderView, err error) {
	const op = "cancel order"
	defer s.recoverPanic(ctx, op, &err)

	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if !orderdomain.CanTransition(order.Status, orderdomain.StatusCancelled) {
		return nil, NewError(KindInvalidStateTransition, op, fmt.Sprintf("order in status %s cannot be cancelled", order.Status), orderdomain.ErrInvalidTransition)
	}

	wasPaid := order.PaymentStatus == orderdomain.PaymentPaid
	if wasPaid {
		refund, err := s.deps.Gateway.Refund(ctx, paydomain.RefundRequest{
			IdempotencyKey:   order.IdempotencyKey + ":cancel",
			Method:           order.PaymentMethod,
			PaymentReference: order.PaymentReference,
			Amount:           order.TotalAmount,
			Currency:         order.Currency,
		})
		if err != nil {
			return nil, mapError(op, err)
		}
		if !refund.Success {
			return nil, NewError(KindPaymentDeclined, op, "refund "+string(refund.Status)+": "+refund.Message, nil)
		}
	}

	detached := context.WithoutCancel(ctx)
	now := s.now().UTC()
	cancelled := order.Clone()
	if err := cancelled.Cancel(reason, now); err != nil {
		return nil, mapError(op, err)
	}
	if wasPaid {
		cancelled.MarkRefunded(now)
	}
	persisted, err := s.deps.Orders.Update(detached, cancelled)
	if err != nil {
		if wasPaid {
			s.logger.LogAttrs(detached, slog.LevelError, "cancellation not persisted after refund",
				slog.Int64("order.id", order.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, mapError(op, err)
	}
	for _, item := range persisted.Items {
		s.release(detached, item.ProductID, item.Quantity)
	}

	s.dispatch(detached, s.orderMessage(persisted, s.recipientUser(detached, persisted.UserID), eventCancelled))
	return types.NewOrderView(persisted), nil
}

// ShipOrder moves a paid order to shipped.
func (s *Service) ShipOrder(ctx context.Context, orderID int64, trackingNumber string) (view *types.OrderView, err error) {
	const op = "ship order"
	defer s.recoverPanic(ctx, op, &err)
	return s.transition(ctx, op, orderID, eventShipped, func(o *orderdomain.Order, now time.Time) error {
		return o.Ship(trackingNumber, now)
	})
}

// DeliverOrder moves a shipped order to delivered.
func (s *Service) DeliverOrder(ctx context.Context, orderID int64) (view *types.OrderView, err error) {
	const op = "deliver order"
	defer s.recoverPanic(ctx, op, &err)
	return s.transition(ctx, op, orderID, eventDelivered, func(o *orderdomain.Order, now time.Time) error {
		return o.Deliver(now)
	})
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (view *types.OrderView, err error) {
	const op = "get order"
	defer s.recoverPanic(ctx, op, &err)
	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	return types.NewOrderView(order), nil
}

// ScheduleOrderStats queues a report of the user's paid orders.
func (s *Service) ScheduleOrderStats(ctx context.Context, userID int64) (ticket *types.StatsTicket, err error) {
	const op = "schedule order stats"
	defer s.recoverPanic(ctx, op, &err)

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if s.deps.Scheduler == nil {
		return nil, NewError(KindQueueFull, op, "no task queue configured", nil)
	}
	task := s.statsTask(user)
	if err := s.deps.Scheduler.Enqueue(ctx, task); err != nil {
		return nil, mapError(op, err)
	}
	return &types.StatsTicket{TaskID: task.ID, UserID: user.ID}, nil
}

func (s *Service) transition(ctx context.Context, op string, orderID int64, event orderEvent, apply func(*orderdomain.Order, time.Time) error) (*types.OrderView, error) {
	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	next := order.Clone()
	if err := apply(next, s.now().UTC()); err != nil {
		return nil, mapError(op, err)
	}
	persisted, err := s.deps.Orders.Update(ctx, next)
	if err != nil {
		return nil, mapError(op, err)
	}
	s.dispatch(ctx, s.orderMessage(persisted, s.recipientUser(ctx, persisted.UserID), event))
	return types.NewOrderView(persisted), nil
}

// replay answers a repeated purchase with the outcome of the first attempt.
func (s *Service) replay(op string, order *orderdomain.Order) (*types.Receipt, error) {
	switch order.Status {
	case orderdomain.StatusFailed:
		return nil, NewError(KindPaymentDeclined, op, "purchase already failed for this idempotency key", nil)
	case orderdomain.StatusCreated:
		return nil, NewError(KindInvalidStateTransition, op, "purchase with this idempotency key is still in progress", nil)
	}
	return receiptFor(order, true), nil
}

// failPurchase is the compensation for a charge that did not go through.
// Stock is released only once the failed status is stored: an order left in
// created still owns its reservation and a later cancellation releases it.
func (s *Service) failPurchase(ctx context.Context, order *orderdomain.Order, reason string) {
	current := order
	save := func() error {
		failed := current.Clone()
		if err := failed.MarkFailed(reason, s.now().UTC()); err != nil {
			return backoff.Permanent(err)
		}
		_, err := s.deps.Orders.Update(ctx, failed)
		if errors.Is(err, orderports.ErrConcurrentUpdate) {
			if latest, lookupErr := s.deps.Orders.GetByID(ctx, order.ID); lookupErr == nil {
				current = latest
			}
		}
		return err
	}
	if err := backoff.Retry(save, s.compensationPolicy(ctx)); err != nil {
		if errors.Is(err, orderdomain.ErrInvalidTransition) {
			// Someone else settled the order and owns its stock.
			s.logger.LogAttrs(ctx, slog.LevelWarn, "order could not be marked failed",
				slog.Int64("order.id", order.ID),
				slog.String("order.status", string(current.Status)),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.LogAttrs(ctx, slog.LevelError, "failed order needs reconciliation",
			slog.Int64("order.id", order.ID),
			slog.String("order.number", order.OrderNumber),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, item := range order.Items {
		s.release(ctx, item.ProductID, item.Quantity)
	}
}

func (s *Service) compensationPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retryInterval
	exp.MaxInterval = 10 * s.retryInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, s.retries), ctx)
}

// compensateCharge undoes a captured payment whose order could not be marked paid.
func (s *Service) compensateCharge(ctx context.Context, order *orderdomain.Order, method string, result paydomain.Result) {
	current, lookupErr := s.deps.Orders.GetByID(ctx, order.ID)
	if lookupErr == nil && current.PaymentStatus == orderdomain.PaymentPaid && current.PaymentReference == result.Reference {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "paid order persisted despite update error",
			slog.Int64("order.id", order.ID),
		)
		return
	}

	refund, err := s.deps.Gateway.Refund(ctx, paydomain.RefundRequest{
		IdempotencyKey:   order.IdempotencyKey + ":compensate",
		Method:           method,
		PaymentReference: result.Reference,
		Amount:           order.TotalAmount,
		Currency:         order.Currency,
	})
	if err != nil || !refund.Success {
		attrs := []slog.Attr{
			slog.Int64("order.id", order.ID),
			slog.String("payment.reference", result.Reference),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		} else {
			attrs = append(attrs, slog.String("refund.status", string(refund.Status)))
		}
		s.logger.LogAttrs(ctx, slog.LevelError, "refund of orphaned charge failed", attrs...)
	}

	if lookupErr != nil {
		s.failPurchase(ctx, order, "order could not be marked paid")
		return
	}
	if current.Status == orderdomain.StatusCancelled {
		return
	}
	s.failPurchase(ctx, current, "order could not be marked paid")
}

func (s *Service) release(ctx context.Context, productID int64, qty int) {
	if _, err := s.deps.Ledger.Release(ctx, productID, qty); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "stock release failed",
			slog.Int64("product.id", productID),
			slog.Int("quantity", qty),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) reReserve(ctx context.Context, item orderdomain.Item) {
	if _, err := s.deps.Ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "stock could not be re-reserved after failed return",
			slog.Int64("product.id", item.ProductID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) clearCart(ctx context.Context, userID int64) {
	if s.deps.Carts == nil {
		return
	}
	if err := s.deps.Carts.Clear(ctx, userID); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "cart not cleared after purchase",
			slog.Int64("user.id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) recipientUser(ctx context.Context, userID int64) *userdomain.User {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return &userdomain.User{ID: userID}
	}
	return user
}

func (s *Service) recoverPanic(ctx context.Context, op string, err *error) {
	if r := recover(); r != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "purchasing operation panicked",
			slog.String("op", op),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
		*err = NewError(KindInternal, op, fmt.Sprintf("unexpected failure: %v", r), nil)
	}
}

func receiptFor(order *orderdomain.Order, replayed bool) *types.Receipt {
	return &types.Receipt{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		PaymentID:      order.PaymentReference,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		IdempotencyKey: order.IdempotencyKey,
		Replayed:       replayed,
	}
}
