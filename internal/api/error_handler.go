package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// specific errors whose text is safe to show to the caller.
var publicErrors = []error{
	domain.ErrCardNotFound,
	domain.ErrUserNotFound,
	domain.ErrNonPositiveAmount,
	domain.ErrAmountScale,
	domain.ErrAmountOutOfRange,
	domain.ErrSameCard,
	domain.ErrInvalidStatus,
	domain.ErrInvalidRoles,
	domain.ErrCardInactive,
	domain.ErrInsufficientFunds,
}

// NewHTTPErrorHandler maps error kinds to status codes and renders {"error": "..."}.
// Unexpected errors are logged here and reach the client as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, publicMessage(err, domain.ErrNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, publicMessage(err, domain.ErrInvalidArgument)
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest, publicMessage(err, domain.ErrInvalidState)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, ports.ErrIdempotencyInFlight):
		return http.StatusConflict, ports.ErrIdempotencyInFlight.Error()
	case errors.Is(err, domain.ErrCryptoFailure):
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("card data crypto failure")
		return http.StatusInternalServerError, "card data unavailable"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// publicMessage returns the text of the most specific known error in err's
// chain. Other errors of the same kind are cut back to the kind prefix so
// operation context added while wrapping does not leak.
func publicMessage(err error, kind error) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, kind.Error()); i >= 0 {
		return msg[i:]
	}
	return kind.Error()
}
