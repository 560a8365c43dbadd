package sms

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
)

var _ ports.Observer = (*Observer)(nil)

// Observer writes SMS deliveries to the structured log. No carrier integration exists.
type Observer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Observer{logger: logger}
}

func (o *Observer) Name() string { return "sms" }

func (o *Observer) Update(ctx context.Context, msg domain.Message) error {
	phone := strings.TrimSpace(msg.Recipient.Phone)
	if phone == "" {
		return nil
	}
	o.logger.LogAttrs(ctx, slog.LevelInfo, "sms dispatched",
		slog.String("channel", o.Name()),
		slog.String("to", mask(phone)),
		slog.String("message.id", msg.ID),
		slog.String("text", msg.Short()),
	)
	return nil
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
