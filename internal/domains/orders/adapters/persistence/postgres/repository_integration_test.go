//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-storefront-api/internal/platform/migrations"
)

func setupOrdersPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func newOrder(t *testing.T, userID int64, key string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(userID, []domain.Item{
		{ProductID: 1, ProductName: "Laptop", Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")},
		{ProductID: 2, ProductName: "Mouse", Quantity: 1, UnitPrice: decimal.RequireFromString("9.99")},
	}, "USD", time.Now())
	require.NoError(t, err)
	order.IdempotencyKey = key
	return order
}

func TestRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newOrder(t, 1, "key-1"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	require.Len(t, created.Items, 2)
	assert.Equal(t, "109.99", created.TotalAmount.StringFixed(2))

	byKey, err := repo.GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, created.OrderNumber, byKey.OrderNumber)

	_, err = repo.Create(ctx, newOrder(t, 1, "key-1"))
	assert.ErrorIs(t, err, ports.ErrDuplicateIdempotency)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_OptimisticUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newOrder(t, 1, "key-1"))
	require.NoError(t, err)

	paid := created.Clone()
	require.NoError(t, paid.MarkPaid("crypto", "PAY-1", time.Now()))
	updated, err := repo.Update(ctx, paid)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	stale := created.Clone()
	require.NoError(t, stale.Cancel("stale", time.Now()))
	_, err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, ports.ErrConcurrentUpdate)
}

func TestRepository_RecordReturn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	order, err := repo.Create(ctx, newOrder(t, 1, "key-1"))
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("crypto", "PAY-1", now))
	order, err = repo.Update(ctx, order)
	require.NoError(t, err)
	require.NoError(t, order.Ship("TRK-1", now))
	order, err = repo.Update(ctx, order)
	require.NoError(t, err)
	require.NoError(t, order.Deliver(now))
	order, err = repo.Update(ctx, order)
	require.NoError(t, err)

	item := order.Items[0]
	require.NoError(t, order.MarkReturned("damaged", now))
	ret, err := repo.RecordReturn(ctx, order, domain.NewReturn(order, item, "damaged", "REF-PAY-1", now))
	require.NoError(t, err)
	assert.NotZero(t, ret.ID)
	assert.Equal(t, "100.00", ret.Amount.StringFixed(2))

	fetched, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, fetched.Status)
	assert.Equal(t, []string{"damaged"}, fetched.Notes)

	returns, err := repo.ListReturns(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, returns, 1)
}

func TestRepository_ListByUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c"} {
		userID := int64(1)
		if i == 2 {
			userID = 2
		}
		_, err := repo.Create(ctx, newOrder(t, userID, key))
		require.NoError(t, err)
	}

	list, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Len(t, list[0].Items, 2)
}
