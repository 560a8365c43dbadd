package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	cartcatalog "github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/catalog"
	cartmemory "github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/memory"
	cartpostgres "github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/persistence/postgres"
	cartapp "github.com/Apurer/go-storefront-api/internal/domains/carts/application"
	cartports "github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
	invmemory "github.com/Apurer/go-storefront-api/internal/domains/inventory/adapters/memory"
	invpostgres "github.com/Apurer/go-storefront-api/internal/domains/inventory/adapters/persistence/postgres"
	invredis "github.com/Apurer/go-storefront-api/internal/domains/inventory/adapters/redis"
	invapp "github.com/Apurer/go-storefront-api/internal/domains/inventory/application"
	invports "github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
	notifemail "github.com/Apurer/go-storefront-api/internal/domains/notifications/adapters/email"
	notifkafka "github.com/Apurer/go-storefront-api/internal/domains/notifications/adapters/kafka"
	notifpush "github.com/Apurer/go-storefront-api/internal/domains/notifications/adapters/push"
	notifsms "github.com/Apurer/go-storefront-api/internal/domains/notifications/adapters/sms"
	notifapp "github.com/Apurer/go-storefront-api/internal/domains/notifications/application"
	ordermemory "github.com/Apurer/go-storefront-api/internal/domains/orders/adapters/memory"
	orderpostgres "github.com/Apurer/go-storefront-api/internal/domains/orders/adapters/persistence/postgres"
	orderports "github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/card"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/legacy"
	paymemory "github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/memory"
	paypostgres "github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/persistence/postgres"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/retry"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/wallet"
	payapp "github.com/Apurer/go-storefront-api/internal/domains/payments/application"
	payports "github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
	purchobs "github.com/Apurer/go-storefront-api/internal/domains/purchasing/adapters/observability"
	purchworkflows "github.com/Apurer/go-storefront-api/internal/domains/purchasing/adapters/workflows"
	purchapp "github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	purchports "github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	usermemory "github.com/Apurer/go-storefront-api/internal/domains/users/adapters/memory"
	userobs "github.com/Apurer/go-storefront-api/internal/domains/users/adapters/observability"
	userpostgres "github.com/Apurer/go-storefront-api/internal/domains/users/adapters/persistence/postgres"
	userapp "github.com/Apurer/go-storefront-api/internal/domains/users/application"
	userports "github.com/Apurer/go-storefront-api/internal/domains/users/ports"
	platformobservability "github.com/Apurer/go-storefront-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-storefront-api/internal/platform/postgres"
	"github.com/Apurer/go-storefront-api/internal/platform/taskqueue"
)

// Payment method names accepted at the request boundary.
const (
	MethodCreditCard = "credit_card"
	MethodCrypto     = "crypto"
	MethodPayPal     = "paypal"
)

// Components is the wired service graph shared by the API and the Temporal worker.
type Components struct {
	Users      userports.Service
	Inventory  invports.Service
	Carts      cartports.Service
	Methods    payports.MethodCatalog
	Purchasing purchports.Service
	Queue      *taskqueue.Queue

	logger  *slog.Logger
	closers []func()
}

// Build wires repositories (postgres or memory), the stock ledger (redis when configured),
// payment backends, notification observers, the task queue and the purchase orchestrator.
// The task queue is started; Close stops it and releases every connection.
func Build(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Components, error) {
	logger := effectiveLogger(instruments)
	c := &Components{logger: logger}

	db, closeDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, platformpostgres.Options{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Migrate:         cfg.PostgresMigrate,
	}, logger)
	c.closers = append(c.closers, closeDB)

	userRepo, cartRepo, orderRepo, idempotency := repositories(db)
	catalog, ledger := c.inventory(ctx, cfg, db)

	c.Users = userobs.New(
		userapp.NewService(userRepo),
		userobs.WithLogger(logger),
		userobs.WithTracer(instruments.Tracer("internal.users.application")),
		userobs.WithMeter(instruments.Meter("internal.users.application")),
	)
	c.Inventory = invapp.NewService(catalog, ledger)
	c.Carts = cartapp.NewService(cartRepo, cartcatalog.NewLookup(catalog))

	router, err := paymentRouter(cfg.Payments, logger)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Methods = router
	var gateway payports.Gateway = router
	if cfg.Payments.Retries > 0 {
		gateway = retry.New(router, retry.WithMaxRetries(cfg.Payments.Retries), retry.WithLogger(logger))
	}
	gateway = payapp.NewIdempotentGateway(gateway, idempotency, logger)

	subject, err := c.notifier(cfg, logger)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	c.Queue = taskqueue.New(cfg.TaskQueueCapacity,
		taskqueue.WithWorkers(cfg.TaskQueueWorkers),
		taskqueue.WithTaskTimeout(cfg.TaskTimeout),
		taskqueue.WithLogger(logger),
		taskqueue.WithMeter(instruments.Meter("internal.platform.taskqueue")),
	)
	if err := c.Queue.Start(context.WithoutCancel(ctx)); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("start task queue: %w", err)
	}

	core, err := purchapp.NewService(purchapp.Dependencies{
		Users:     userRepo,
		Catalog:   catalog,
		Ledger:    ledger,
		Orders:    orderRepo,
		Carts:     cartRepo,
		Gateway:   gateway,
		Notifier:  subject,
		Scheduler: c.Queue,
	}, purchapp.WithLogger(logger), purchapp.WithCurrency(cfg.Currency))
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Purchasing = purchobs.New(
		core,
		purchobs.WithLogger(logger),
		purchobs.WithTracer(instruments.Tracer("internal.purchasing.application")),
		purchobs.WithMeter(instruments.Meter("internal.purchasing.application")),
	)
	return c, nil
}

// Close drains the task queue and then releases connections in reverse order of acquisition.
func (c *Components) Close(ctx context.Context) {
	if c.Queue != nil {
		if err := c.Queue.Stop(ctx); err != nil {
			c.logger.Warn("task queue did not drain", slog.String("error", err.Error()))
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func repositories(db *gorm.DB) (userports.Repository, cartports.Repository, orderports.Repository, payports.IdempotencyStore) {
	if db == nil {
		return usermemory.NewRepository(), cartmemory.NewRepository(), ordermemory.NewRepository(), paymemory.NewIdempotencyStore()
	}
	return userpostgres.NewRepository(db), cartpostgres.NewRepository(db), orderpostgres.NewRepository(db), paypostgres.NewIdempotencyStore(db)
}

// inventory picks the catalog store and the stock ledger. Redis overrides the ledger only.
func (c *Components) inventory(ctx context.Context, cfg Config, db *gorm.DB) (invports.Catalog, invports.Ledger) {
	var (
		catalog invports.Catalog
		ledger  invports.Ledger
	)
	if db != nil {
		repo := invpostgres.NewRepository(db)
		catalog, ledger = repo, repo
	} else {
		store := invmemory.NewStore()
		catalog, ledger = store, store
	}
	if cfg.RedisAddr == "" {
		return catalog, ledger
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		c.logger.Warn("redis unavailable, keeping the catalog ledger", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return catalog, ledger
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	c.logger.Info("stock ledger configured with redis", slog.String("addr", cfg.RedisAddr))
	return catalog, invredis.NewLedger(rdb)
}

func paymentRouter(cfg PaymentConfig, logger *slog.Logger) (*payapp.Router, error) {
	var cardClient card.Client = card.NewSimulator(cfg.DeclineAbove)
	if cfg.CardBaseURL != "" {
		cardClient = card.NewHTTPClient(cfg.CardBaseURL, cfg.CardAPIKey, cfg.CallTimeout)
		logger.Info("card payments routed to remote provider", slog.String("baseURL", cfg.CardBaseURL))
	}
	return payapp.NewRouter(map[string]payports.Backend{
		MethodCreditCard: legacy.NewBackend(legacy.NewSimulator(cfg.DeclineAbove)),
		MethodCrypto:     card.NewBackend(cardClient),
		MethodPayPal:     wallet.NewBackend(wallet.NewSimulator(cfg.BlockedWallets...)),
	}, payapp.WithCallTimeout(cfg.CallTimeout), payapp.WithRouterLogger(logger))
}

// notifier attaches SMS and push always; email and Kafka only when configured.
func (c *Components) notifier(cfg Config, logger *slog.Logger) (*notifapp.Subject, error) {
	subject := notifapp.NewSubject(logger, notifsms.New(logger), notifpush.New(logger))
	if cfg.SMTP.Host != "" {
		mailer, err := notifemail.New(notifemail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("configure email notifications: %w", err)
		}
		subject.Attach(mailer)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := notifkafka.New(notifkafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		if err != nil {
			return nil, fmt.Errorf("configure kafka notifications: %w", err)
		}
		c.closers = append(c.closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close kafka writer", slog.String("error", err.Error()))
			}
		})
		subject.Attach(publisher)
	}
	logger.Info("notification observers attached", slog.Any("observers", subject.Observers()))
	return subject, nil
}

// Workflows returns the Temporal orchestrator when a client can be dialled and the inline one otherwise.
// The returned cleanup closes the client.
func (c *Components) Workflows(cfg Config, instruments *platformobservability.Instruments) (purchports.WorkflowOrchestrator, func()) {
	temporalClient, err := DialTemporal(cfg, instruments, "temporal-client")
	if err != nil {
		c.logger.Warn("Temporal workflows unavailable, running purchases inline", slog.String("error", err.Error()))
		return purchworkflows.NewInlinePurchaseWorkflows(c.Purchasing), func() {}
	}
	c.logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	return purchworkflows.NewTemporalPurchaseWorkflows(temporalClient), temporalClient.Close
}

// DialTemporal connects a tracing-enabled Temporal client.
func DialTemporal(cfg Config, instruments *platformobservability.Instruments, tracerName string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer(tracerName)
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
