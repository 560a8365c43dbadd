package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	paypostgres "github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/persistence/postgres"
	platformpostgres "github.com/Apurer/go-storefront-api/internal/platform/postgres"
)

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, os.Getenv("POSTGRES_DSN"), platformpostgres.Options{}, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency records")
	}

	retention := retentionFromEnv()
	purged, err := paypostgres.NewIdempotencyStore(db).PurgeExpired(ctx, retention)
	if err != nil {
		log.Fatalf("failed to purge idempotency records: %v", err)
	}
	logger.Info("idempotency purge completed", slog.Int64("purged", purged), slog.Duration("retention", retention))
}

func retentionFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_RETENTION"))
	if raw == "" {
		return paypostgres.DefaultRetention
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return paypostgres.DefaultRetention
	}
	return d
}
