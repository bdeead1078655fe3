package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

func handleError(t *testing.T, err error) (int, string) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/cards/transfer", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body.Error
}

func TestErrorHandler_MapsKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"card not found", fmt.Errorf("transfer: %w", domain.ErrCardNotFound), http.StatusNotFound, "card not found"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"non positive", fmt.Errorf("top up: %w", domain.ErrNonPositiveAmount), http.StatusBadRequest, domain.ErrNonPositiveAmount.Error()},
		{"amount overflow", fmt.Errorf("top up: %w", domain.ErrAmountOutOfRange), http.StatusBadRequest, "invalid argument: amount out of range"},
		{"same card", domain.ErrSameCard, http.StatusBadRequest, domain.ErrSameCard.Error()},
		{"insufficient", fmt.Errorf("transfer: %w", domain.ErrInsufficientFunds), http.StatusBadRequest, "invalid state: insufficient funds"},
		{"inactive", domain.ErrCardInactive, http.StatusBadRequest, "invalid state: card must be active"},
		{"ad hoc argument", fmt.Errorf("create user: %w: username and password are required", domain.ErrInvalidArgument), http.StatusBadRequest, "invalid argument: username and password are required"},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"user exists", fmt.Errorf("register: %w", domain.ErrUserExists), http.StatusConflict, "user already exists"},
		{"in flight", ports.ErrIdempotencyInFlight, http.StatusConflict, ports.ErrIdempotencyInFlight.Error()},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized, "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := handleError(t, tc.err)
			if code != tc.code || msg != tc.msg {
				t.Fatalf("got %d %q, want %d %q", code, msg, tc.code, tc.msg)
			}
		})
	}
}

func TestErrorHandler_CryptoFailureIsOpaque(t *testing.T) {
	err := fmt.Errorf("reveal pan: %w: cipher: message authentication failed", domain.ErrCryptoFailure)
	code, msg := handleError(t, err)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != "card data unavailable" {
		t.Fatalf("crypto diagnostics leaked: %q", msg)
	}
}

func TestErrorHandler_UnknownErrorIsGeneric(t *testing.T) {
	code, msg := handleError(t, errors.New("pq: connection reset by peer"))
	if code != http.StatusInternalServerError || msg != "internal server error" {
		t.Fatalf("got %d %q", code, msg)
	}
}

func TestErrorHandler_SkipsCommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrCardNotFound, c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was overwritten: %d %q", rec.Code, rec.Body.String())
	}
}
