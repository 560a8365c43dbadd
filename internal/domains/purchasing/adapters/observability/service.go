package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
)

const tracerName = "github.com/Apurer/go-storefront-api/internal/domains/purchasing/adapters/observability/service"

// Service decorates the purchasing service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

// New wraps the purchase orchestrator.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.Purchase", trace.WithAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int64("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
		attribute.String("payment.method", req.PaymentMethod),
	))
	defer span.End()

	receipt, err := s.inner.Purchase(ctx, req)
	if err != nil {
		s.metrics.recordOutcome(ctx, "purchase", err)
		return nil, s.handleError(ctx, span, err, "purchase failed",
			slog.Int64("user.id", req.UserID),
			slog.Int64("product.id", req.ProductID),
			slog.Int("quantity", req.Quantity),
		)
	}
	span.SetAttributes(
		attribute.String("order.number", receipt.OrderNumber),
		attribute.Bool("purchase.replayed", receipt.Replayed),
	)
	s.metrics.recordOutcome(ctx, "purchase", nil)
	s.logInfo(ctx, "purchase completed",
		slog.Int64("order.id", receipt.OrderID),
		slog.String("order.number", receipt.OrderNumber),
		slog.String("total", receipt.TotalAmount.StringFixed(2)),
		slog.Bool("replayed", receipt.Replayed),
	)
	return receipt, nil
}

func (s *Service) ProcessReturn(ctx context.Context, orderID, itemID int64, reason string) (*types.ReturnReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ProcessReturn", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	receipt, err := s.inner.ProcessReturn(ctx, orderID, itemID, reason)
	s.metrics.recordOutcome(ctx, "return", err)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "return failed", slog.Int64("order.id", orderID), slog.Int64("item.id", itemID))
	}
	s.logInfo(ctx, "return processed",
		slog.Int64("order.id", orderID),
		slog.String("refund.reference", receipt.RefundReference),
	)
	return receipt, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string) (*types.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.CancelOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	view, err := s.inner.CancelOrder(ctx, orderID, reason)
	s.metrics.recordOutcome(ctx, "cancel", err)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "cancel failed", slog.Int64("order.id", orderID))
	}
	s.logInfo(ctx, "order cancelled", slog.Int64("order.id", orderID))
	return view, nil
}

func (s *Service) ShipOrder(ctx context.Context, orderID int64, trackingNumber string) (*types.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ShipOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	view, err := s.inner.ShipOrder(ctx, orderID, trackingNumber)
	s.metrics.recordOutcome(ctx, "ship", err)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "ship failed", slog.Int64("order.id", orderID))
	}
	return view, nil
}

func (s *Service) DeliverOrder(ctx context.Context, orderID int64) (*types.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.DeliverOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	view, err := s.inner.DeliverOrder(ctx, orderID)
	s.metrics.recordOutcome(ctx, "deliver", err)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "deliver failed", slog.Int64("order.id", orderID))
	}
	return view, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*types.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.GetOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()
	return s.inner.GetOrder(ctx, orderID)
}

func (s *Service) ScheduleOrderStats(ctx context.Context, userID int64) (*types.StatsTicket, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ScheduleOrderStats", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	ticket, err := s.inner.ScheduleOrderStats(ctx, userID)
	s.metrics.recordOutcome(ctx, "stats", err)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "order stats not scheduled", slog.Int64("user.id", userID))
	}
	span.SetAttributes(attribute.String("task.id", ticket.TaskID))
	return ticket, nil
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	kind := application.KindOf(err)
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", string(kind)))
	}
	attrs = append(attrs, slog.String("error.kind", string(kind)))
	// Business rejections are expected traffic; only internal failures are logged at error level.
	if kind == application.KindInternal {
		s.logError(ctx, msg, err, attrs...)
	} else {
		s.logWarn(ctx, msg, err, attrs...)
	}
	return err
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logWarn(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

type serviceMetrics struct {
	operations metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	operations, _ := m.Int64Counter("purchasing.service.operations", metric.WithDescription("Purchasing operations by outcome kind"))
	return serviceMetrics{operations: operations}
}

func (m serviceMetrics) recordOutcome(ctx context.Context, op string, err error) {
	if m.operations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(application.KindOf(err))
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

var _ ports.Service = (*Service)(nil)
