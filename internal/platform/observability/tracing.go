package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracerProvider batches spans to OTLP/HTTP. If the exporter cannot be built, spans go to stdout.
func newTracerProvider(ctx context.Context, cfg settings, res *resource.Resource, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	var opts []otlptracehttp.Option
	if cfg.endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.endpoint))
	}
	if cfg.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	var exporter sdktrace.SpanExporter
	otlp, err := otlptracehttp.New(ctx, opts...)
	if err == nil {
		exporter = otlp
	} else {
		logger.Warn("OTLP trace exporter unavailable, writing spans to stdout", slog.String("error", err.Error()))
		stdout, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		exporter = stdout
	}
	return sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithBatcher(exporter)), nil
}
