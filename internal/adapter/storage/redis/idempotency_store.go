package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-core/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// inflightMarker is the reservation value. Committed results are JSON
// envelopes and can never collide with it.
const inflightMarker = "__inflight__"

// IdempotencyStore implements ports.IdempotencyStore using Redis SET NX
// for the in-flight reservation and plain SET for committed results.
type IdempotencyStore struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyStore creates a new Redis-backed idempotency store.
func NewIdempotencyStore(client *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// CheckOrReserve atomically reserves key when it is free, otherwise
// reports what currently holds it.
func (s *IdempotencyStore) CheckOrReserve(ctx context.Context, key string, inflightTTL time.Duration) (ports.ReserveState, []byte, error) {
	rkey := s.prefix + key

	// SET NX loses to a concurrent holder; the follow-up GET may then
	// find the key expired, in which case the reservation is retried.
	for {
		ok, err := s.client.SetNX(ctx, rkey, inflightMarker, inflightTTL).Result()
		if err != nil {
			return 0, nil, fmt.Errorf("redis reserve: %w", err)
		}
		if ok {
			return ports.ReserveAcquired, nil, nil
		}

		val, err := s.client.Get(ctx, rkey).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			return 0, nil, fmt.Errorf("redis idempotency get: %w", err)
		}
		if string(val) == inflightMarker {
			return ports.ReserveInFlight, nil, nil
		}
		return ports.ReserveFound, val, nil
	}
}

// StoreResult replaces the reservation with the committed response.
func (s *IdempotencyStore) StoreResult(ctx context.Context, key string, response []byte, retention time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, response, retention).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release drops the reservation after a failed submission. Only the
// in-flight marker is deleted; a committed result stays put.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	rkey := s.prefix + key
	val, err := s.client.Get(ctx, rkey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return fmt.Errorf("redis release get: %w", err)
	}
	if string(val) != inflightMarker {
		return nil
	}
	if err := s.client.Del(ctx, rkey).Err(); err != nil {
		return fmt.Errorf("redis release del: %w", err)
	}
	return nil
}
