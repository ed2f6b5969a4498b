package redis

import (
	"context"
	"testing"
	"time"

	"ledger-core/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewIdempotencyStore(client), s
}

func TestIdempotencyStore_ReserveThenFind(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	// First submission acquires the reservation.
	state, data, err := store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveAcquired, state)
	assert.Nil(t, data)

	// A duplicate sees it in flight.
	state, _, err = store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveInFlight, state)

	// After the result is stored, duplicates replay it.
	result := []byte(`{"payload_hash":"abc","entry":{}}`)
	require.NoError(t, store.StoreResult(ctx, "k1", result, time.Hour))

	state, data, err = store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveFound, state)
	assert.Equal(t, result, data)
}

func TestIdempotencyStore_ReservationExpiry(t *testing.T) {
	store, s := newStore(t)
	ctx := context.Background()

	state, _, err := store.CheckOrReserve(ctx, "k1", time.Second)
	require.NoError(t, err)
	require.Equal(t, ports.ReserveAcquired, state)

	// A crashed writer's reservation lapses with its TTL.
	s.FastForward(2 * time.Second)

	state, _, err = store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveAcquired, state)
}

func TestIdempotencyStore_Release(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	state, _, err := store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ports.ReserveAcquired, state)

	require.NoError(t, store.Release(ctx, "k1"))

	// Released keys are free again.
	state, _, err = store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveAcquired, state)
}

func TestIdempotencyStore_ReleaseKeepsResult(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	result := []byte(`{"entry":{}}`)
	require.NoError(t, store.StoreResult(ctx, "k1", result, time.Hour))

	// Release only removes in-flight markers, never committed results.
	require.NoError(t, store.Release(ctx, "k1"))

	state, data, err := store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveFound, state)
	assert.Equal(t, result, data)
}

func TestIdempotencyStore_ReleaseMissingKey(t *testing.T) {
	store, _ := newStore(t)
	assert.NoError(t, store.Release(context.Background(), "never-reserved"))
}

func TestIdempotencyStore_ResultTTL(t *testing.T) {
	store, s := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreResult(ctx, "k1", []byte("x"), time.Second))
	s.FastForward(2 * time.Second)

	state, _, err := store.CheckOrReserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ports.ReserveAcquired, state)
}
