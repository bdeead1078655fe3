package ports

import (
	"context"
	"errors"
)

// ErrIdempotencyInFlight is returned when a request with the same key is still running.
var ErrIdempotencyInFlight = errors.New("request with this idempotency key is in progress")

// StoredResponse is the cached outcome of a completed request.
type StoredResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore caches responses per Idempotency-Key.
type IdempotencyStore interface {
	// Reserve claims key. It returns the stored response when the key already
	// completed, ErrIdempotencyInFlight when it is reserved but not completed,
	// and (nil, nil) when the caller now owns the key.
	// Reservations made under a context deadline must outlive that deadline.
	Reserve(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse) error
	// Hold keeps key reserved for the full result lifetime. It is the fallback
	// when Complete fails after the work already happened.
	Hold(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}
