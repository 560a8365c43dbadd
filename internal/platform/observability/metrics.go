package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// newMeterProvider pushes to OTLP/HTTP when an endpoint is configured.
// Without one, instruments record into a manual reader that nothing collects.
func newMeterProvider(ctx context.Context, cfg settings, res *resource.Resource, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	reader := sdkmetric.Reader(sdkmetric.NewManualReader())
	if cfg.endpoint != "" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint)}
		if cfg.insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			logger.Warn("OTLP metric exporter unavailable, metrics stay in-process", slog.String("error", err.Error()))
		} else {
			reader = sdkmetric.NewPeriodicReader(exporter)
		}
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)), nil
}
