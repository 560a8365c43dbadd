package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

func TestIdempotencyStore_SaveReplaysFirstRecord(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore()

	first, err := store.Save(ctx, ports.IdempotencyRecord{Key: "authorize:k1", RequestHash: "h1", Response: []byte(`{"status":"succeeded"}`)})
	require.NoError(t, err)

	again, err := store.Save(ctx, ports.IdempotencyRecord{Key: "authorize:k1", RequestHash: "h1", Response: []byte(`{"status":"declined"}`)})
	require.NoError(t, err)
	assert.Equal(t, first.Response, again.Response)

	got, err := store.Get(ctx, "authorize:k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"status":"succeeded"}`, string(got.Response))
}

func TestIdempotencyStore_ConflictOnDifferentHash(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore()
	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h1"})
	require.NoError(t, err)

	existing, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h2"})
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	assert.Equal(t, "h1", existing.RequestHash)
}

func TestIdempotencyStore_GetUnknownKey(t *testing.T) {
	got, err := NewIdempotencyStore().Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore()
	store.WithClock(func() time.Time { return now })

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "old", RequestHash: "h"})
	require.NoError(t, err)
	now = now.Add(48 * time.Hour)
	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "fresh", RequestHash: "h"})
	require.NoError(t, err)

	purged, err := store.PurgeExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	old, _ := store.Get(ctx, "old")
	fresh, _ := store.Get(ctx, "fresh")
	assert.Nil(t, old)
	assert.NotNil(t, fresh)
}
