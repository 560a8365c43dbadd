package push

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
)

var _ ports.Observer = (*Observer)(nil)

// Observer records push notifications for users with a registered device.
type Observer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Observer{logger: logger}
}

func (o *Observer) Name() string { return "push" }

func (o *Observer) Update(ctx context.Context, msg domain.Message) error {
	token := strings.TrimSpace(msg.Recipient.DeviceToken)
	if token == "" {
		return nil
	}
	o.logger.LogAttrs(ctx, slog.LevelInfo, "push notification dispatched",
		slog.String("channel", o.Name()),
		slog.String("device", token),
		slog.String("message.id", msg.ID),
		slog.String("title", msg.Short()),
	)
	return nil
}
