package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-storefront-api/internal/app/api"
	platformobservability "github.com/Apurer/go-storefront-api/internal/platform/observability"
	purchaseactivities "github.com/Apurer/go-storefront-api/internal/platform/temporal/activities/purchasing"
	purchaseworkflows "github.com/Apurer/go-storefront-api/internal/platform/temporal/workflows/purchasing"
)

func main() {
	ctx := context.Background()
	const serviceName = "storefront-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	components, err := api.Build(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to wire purchasing components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		components.Close(closeCtx)
	}()

	temporalClient, err := api.DialTemporal(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		return
	}
	defer temporalClient.Close()

	activities := purchaseactivities.NewActivities(components.Purchasing)
	w := worker.New(temporalClient, purchaseworkflows.PurchaseTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(purchaseworkflows.PurchaseWorkflow, workflow.RegisterOptions{Name: purchaseworkflows.PurchaseWorkflowName})
	w.RegisterActivityWithOptions(activities.Purchase, activity.RegisterOptions{Name: purchaseactivities.PurchaseActivityName})

	logger.Info("worker listening", slog.String("taskQueue", purchaseworkflows.PurchaseTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
