package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/pkg/metrics"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "X-Idempotency-Replayed"
	maxIdempotencyKeyLen = 255

	// idempotentRequestTimeout bounds a keyed request so it always finishes
	// before its reservation expires.
	idempotentRequestTimeout = 30 * time.Second
)

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the caller, method and path. Requests
// without the header pass straight through. It must run after Auth.
func Idempotency(store ports.IdempotencyStore, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if key == "" {
				return next(c)
			}
			if len(key) > maxIdempotencyKeyLen {
				return echo.NewHTTPError(http.StatusBadRequest, "idempotency key too long")
			}

			scope := key
			if id, ok := IdentityFrom(c); ok {
				scope = id.UserID.String() + ":" + scope
			}
			scope = c.Request().Method + " " + c.Request().URL.Path + ":" + scope

			ctx, cancel := context.WithTimeout(c.Request().Context(), idempotentRequestTimeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			stored, err := store.Reserve(ctx, scope)
			switch {
			case errors.Is(err, ports.ErrIdempotencyInFlight):
				return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
			case err != nil:
				log.Error().Err(err).Msg("idempotency store unavailable")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "idempotency store unavailable")
			case stored != nil:
				metrics.IdempotencyReplaysTotal.Inc()
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(stored.Status, echo.MIMEApplicationJSONCharsetUTF8, stored.Body)
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec

			// Bookkeeping outlives the request timeout.
			after := context.WithoutCancel(ctx)

			if err := next(c); err != nil {
				release(after, store, scope, log)
				return err
			}

			status := c.Response().Status
			if status < 200 || status >= 300 {
				release(after, store, scope, log)
				return nil
			}
			if err := store.Complete(after, scope, ports.StoredResponse{Status: status, Body: rec.body.Bytes()}); err != nil {
				log.Error().Err(err).Str("scope", scope).Msg("idempotency response not stored, holding key")
				if err := store.Hold(after, scope); err != nil {
					log.Error().Err(err).Str("scope", scope).Msg("idempotency key not held")
				}
			}
			return nil
		}
	}
}

func release(ctx context.Context, store ports.IdempotencyStore, scope string, log zerolog.Logger) {
	if err := store.Release(ctx, scope); err != nil {
		log.Warn().Err(err).Msg("idempotency key not released")
	}
}

// bodyRecorder tees the response body so it can be stored after the handler ran.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
