// Package observability sets up process-wide logging, tracing and metrics.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

// Instruments is handed to every wiring site that needs a logger, tracer or meter.
type Instruments struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// ShutdownFunc flushes pending spans and metrics.
type ShutdownFunc func(context.Context) error

// settings is the OTEL_* and LOG_* environment, read once per Init.
type settings struct {
	endpoint    string
	insecure    bool
	environment string
	logLevel    slog.Level
	logFormat   string
}

func loadSettings() settings {
	s := settings{
		endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		insecure:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")) != "0",
		environment: envOrDefault("ENVIRONMENT", "local"),
		logFormat:   strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		logLevel:    slog.LevelInfo,
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(envOrDefault("LOG_LEVEL", "info"))); err == nil {
		s.logLevel = level
	}
	return s
}

// Init installs the global logger, tracer provider, meter provider and propagator.
func Init(ctx context.Context, serviceName string) (*Instruments, ShutdownFunc, error) {
	cfg := loadSettings()
	logger := newLogger(cfg)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("deployment.environment", cfg.environment),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tracerProvider, err := newTracerProvider(ctx, cfg, res, logger)
	if err != nil {
		return nil, nil, err
	}
	meterProvider, err := newMeterProvider(ctx, cfg, res, logger)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, nil, err
	}
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	shutdown := func(ctx context.Context) error {
		return errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
	}
	return &Instruments{Logger: logger, TracerProvider: tracerProvider, MeterProvider: meterProvider}, shutdown, nil
}

// Tracer falls back to the global provider when i is nil.
func (i *Instruments) Tracer(name string) trace.Tracer {
	if i == nil || i.TracerProvider == nil {
		return otel.Tracer(name)
	}
	return i.TracerProvider.Tracer(name)
}

// Meter returns a no-op meter when i is nil so callers never check.
func (i *Instruments) Meter(name string) metric.Meter {
	if i == nil || i.MeterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name)
	}
	return i.MeterProvider.Meter(name)
}

func newLogger(cfg settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.logLevel, AddSource: true}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
