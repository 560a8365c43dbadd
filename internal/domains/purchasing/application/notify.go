package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	notifdomain "github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	userdomain "github.com/Apurer/go-storefront-api/internal/domains/users/domain"
	"github.com/Apurer/go-storefront-api/internal/platform/taskqueue"
)

type orderEvent struct {
	kind    notifdomain.EventType
	subject string
	body    string
}

var (
	eventPaid = orderEvent{
		kind:    notifdomain.EventOrderPaid,
		subject: "Order confirmed",
		body:    "Your order %s has been paid. Total: %s %s.",
	}
	eventCancelled = orderEvent{
		kind:    notifdomain.EventOrderCancelled,
		subject: "Order cancelled",
		body:    "Your order %s has been cancelled. Any captured amount (%s %s) is being refunded.",
	}
	eventShipped = orderEvent{
		kind:    notifdomain.EventOrderShipped,
		subject: "Order shipped",
		body:    "Your order %s is on its way. Order total: %s %s.",
	}
	eventDelivered = orderEvent{
		kind:    notifdomain.EventOrderDelivered,
		subject: "Order delivered",
		body:    "Your order %s has been delivered. Order total: %s %s.",
	}
	eventReturned = orderEvent{
		kind:    notifdomain.EventOrderReturned,
		subject: "Return processed",
		body:    "A return for order %s has been processed against the order total of %s %s.",
	}
)

func recipientOf(user *userdomain.User) notifdomain.Recipient {
	if user == nil {
		return notifdomain.Recipient{}
	}
	return notifdomain.Recipient{
		UserID:      user.ID,
		Name:        user.FullName(),
		Email:       user.Email,
		Phone:       user.Phone,
		DeviceToken: user.DeviceToken,
	}
}

func (s *Service) orderMessage(order *orderdomain.Order, user *userdomain.User, event orderEvent) notifdomain.Message {
	body := fmt.Sprintf(event.body, order.OrderNumber, order.TotalAmount.StringFixed(2), order.Currency)
	msg := notifdomain.NewMessage(event.kind, recipientOf(user), event.subject, body, s.now()).
		ForOrder(order.ID, order.OrderNumber).
		With("order.status", string(order.Status))
	if order.TrackingNumber != "" {
		msg = msg.With("tracking.number", order.TrackingNumber)
	}
	return msg
}

// dispatch hands the message to the task queue. Failures are logged and never reach the caller.
func (s *Service) dispatch(ctx context.Context, msg notifdomain.Message) {
	if s.deps.Notifier == nil {
		return
	}
	task := taskqueue.Task{
		ID:   msg.ID,
		Name: "notify." + string(msg.Type),
		Run: func(ctx context.Context) error {
			return s.deps.Notifier.Notify(ctx, msg)
		},
	}
	if s.deps.Scheduler == nil {
		if err := task.Run(context.WithoutCancel(ctx)); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "notification failed", slog.String("message.id", msg.ID), slog.String("error", err.Error()))
		}
		return
	}
	if err := s.deps.Scheduler.Enqueue(ctx, task); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "notification not scheduled",
			slog.String("message.id", msg.ID),
			slog.String("message.type", string(msg.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// statsTask computes the user's paid-order statistics off the request path and mails them.
func (s *Service) statsTask(user *userdomain.User) taskqueue.Task {
	id := uuid.NewString()
	return taskqueue.Task{
		ID:   id,
		Name: "order-stats",
		Run: func(ctx context.Context) error {
			orders, err := s.deps.Orders.ListByUser(ctx, user.ID)
			if err != nil {
				return err
			}
			stats := orderdomain.ComputeStats(user.ID, orders)
			s.logger.LogAttrs(ctx, slog.LevelInfo, "order stats computed",
				slog.Int64("user.id", user.ID),
				slog.Int("orders.total", stats.TotalOrders),
				slog.String("orders.spent", stats.TotalSpent.StringFixed(2)),
			)
			if s.deps.Notifier == nil {
				return nil
			}
			body := fmt.Sprintf("Orders: %d\nTotal spent: %s\nAverage order value: %s",
				stats.TotalOrders, stats.TotalSpent.StringFixed(2), stats.AverageOrderValue.StringFixed(2))
			msg := notifdomain.NewMessage(notifdomain.EventOrderStats, recipientOf(user), "Your order statistics", body, s.now()).
				With("orders.total", strconv.Itoa(stats.TotalOrders)).
				With("orders.spent", stats.TotalSpent.StringFixed(2)).
				With("orders.average", stats.AverageOrderValue.StringFixed(2)).
				With("task.id", id)
			return s.deps.Notifier.Notify(ctx, msg)
		},
	}
}
