//go:build integration

package postgres

import (
	"context"
	"sync"
	"sync/atomic"
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

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
	"github.com/Apurer/go-storefront-api/internal/platform/migrations"
)

func setupInventoryPostgresContainer(t *testing.T) (*gorm.DB, func()) {
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

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
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

func TestRepository_SaveAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupInventoryPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	product, err := domain.NewProduct(0, "Widget", "WID-1", decimal.RequireFromString("19.99"), 5)
	require.NoError(t, err)

	saved, err := repo.Save(ctx, product)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	fetched, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "WID-1", fetched.SKU)
	assert.True(t, fetched.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 5, fetched.Stock)

	_, err = repo.GetByID(ctx, saved.ID+100)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_SaveDoesNotOverwriteStock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupInventoryPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	product, err := domain.NewProduct(0, "Widget", "WID-1", decimal.NewFromInt(10), 5)
	require.NoError(t, err)
	saved, err := repo.Save(ctx, product)
	require.NoError(t, err)

	saved.Price = decimal.NewFromInt(12)
	saved.Stock = 500
	updated, err := repo.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(12)))
}

func TestRepository_Search(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupInventoryPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	for _, p := range []struct {
		name, sku, category, price string
	}{
		{"Phone Basic", "PH-1", "electronics", "150.00"},
		{"Phone Case", "CASE-1", "accessories", "15.00"},
		{"100% Cotton Tee", "TEE-1", "apparel", "25.00"},
		{"Smartphone Pro", "PH-2", "Electronics", "899.00"},
	} {
		product, err := domain.NewProduct(0, p.name, p.sku, decimal.RequireFromString(p.price), 1)
		require.NoError(t, err)
		product.Category = p.category
		_, err = repo.Save(ctx, product)
		require.NoError(t, err)
	}

	lo, hi := decimal.NewFromInt(100), decimal.NewFromInt(1000)
	found, err := repo.Search(ctx, domain.SearchFilter{
		Keyword:  "phone",
		Category: "electronics",
		MinPrice: &lo,
		MaxPrice: &hi,
		Sort:     domain.SortByPriceDesc,
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Smartphone Pro", found[0].Name)
	assert.Equal(t, "Phone Basic", found[1].Name)

	found, err = repo.Search(ctx, domain.SearchFilter{Keyword: "100%"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "TEE-1", found[0].SKU)

	found, err = repo.Search(ctx, domain.SearchFilter{Keyword: "case-1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Phone Case", found[0].Name)
}

func TestRepository_ReserveAndRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupInventoryPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	product, err := domain.NewProduct(0, "Widget", "WID-1", decimal.NewFromInt(10), 2)
	require.NoError(t, err)
	saved, err := repo.Save(ctx, product)
	require.NoError(t, err)

	_, err = repo.Reserve(ctx, saved.ID, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	remaining, err := repo.Reserve(ctx, saved.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = repo.Release(ctx, saved.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	_, err = repo.Release(ctx, saved.ID+100, 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ConcurrentReservationsNeverOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupInventoryPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	product, err := domain.NewProduct(0, "Widget", "WID-1", decimal.NewFromInt(10), 10)
	require.NoError(t, err)
	saved, err := repo.Save(ctx, product)
	require.NoError(t, err)

	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(ctx, saved.ID, 3); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), succeeded.Load())
	available, err := repo.Available(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, available)
}
