package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

const (
	keyPrefix        = "idem:"
	pendingMarker    = "pending"
	pendingTTL       = 30 * time.Second
	pendingGrace     = 5 * time.Second
	defaultResultTTL = 24 * time.Hour
)

// IdempotencyStore keeps one entry per Idempotency-Key.
// Key format: idem:<scope>. The value is "pending" while the first request
// runs and the JSON-encoded response afterwards.
type IdempotencyStore struct {
	client    *redis.Client
	resultTTL time.Duration
}

// NewIdempotencyStore wraps client. resultTTL bounds how long completed
// responses are replayed.
func NewIdempotencyStore(client *redis.Client, resultTTL time.Duration) *IdempotencyStore {
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}
	return &IdempotencyStore{client: client, resultTTL: resultTTL}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (*ports.StoredResponse, error) {
	// A key can expire between SETNX and GET, so try twice before giving up.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, reservationTTL(ctx, time.Now())).Result()
		if err != nil {
			return nil, fmt.Errorf("idempotency reserve: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		return decodeStored(raw)
	}
	return nil, ports.ErrIdempotencyInFlight
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp ports.StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

// Hold pins the pending marker for the full result TTL. Duplicates keep
// getting ErrIdempotencyInFlight instead of re-running a request whose
// outcome could not be stored.
func (s *IdempotencyStore) Hold(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, keyPrefix+key, pendingMarker, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("idempotency hold: %w", err)
	}
	return nil
}

// Release drops a reservation so the client may retry after a failure.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

// reservationTTL keeps a pending marker alive until the request deadline has
// passed. Requests without a deadline get pendingTTL.
func reservationTTL(ctx context.Context, now time.Time) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return pendingTTL
	}
	ttl := deadline.Sub(now) + pendingGrace
	if ttl < pendingGrace {
		return pendingGrace
	}
	return ttl
}

func decodeStored(raw []byte) (*ports.StoredResponse, error) {
	if string(raw) == pendingMarker {
		return nil, ports.ErrIdempotencyInFlight
	}
	var resp ports.StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &resp, nil
}
