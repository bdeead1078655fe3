package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/effectivemobile/bank-cards/internal/api/middleware"
	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubLedger struct {
	createFn   func(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error)
	statusFn   func(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID, status domain.CardStatus) (*domain.Card, error)
	topUpFn    func(ctx context.Context, ownerID, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error)
	adminTopFn func(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error)
	transferFn func(ctx context.Context, in ports.TransferInput) (*ports.TransferResult, error)
	deleteFn   func(ctx context.Context, cardID uuid.UUID) error
	ownedFn    func(ctx context.Context, ownerID uuid.UUID, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error)
	allFn      func(ctx context.Context, username string, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error)
	revealFn   func(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID) (string, error)
}

func (s *stubLedger) CreateCard(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
	return s.createFn(ctx, in)
}

func (s *stubLedger) ChangeStatus(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID, status domain.CardStatus) (*domain.Card, error) {
	return s.statusFn(ctx, cardID, owner, status)
}

func (s *stubLedger) TopUp(ctx context.Context, ownerID, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error) {
	return s.topUpFn(ctx, ownerID, cardID, amount)
}

func (s *stubLedger) AdminTopUp(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error) {
	return s.adminTopFn(ctx, cardID, amount)
}

func (s *stubLedger) Transfer(ctx context.Context, in ports.TransferInput) (*ports.TransferResult, error) {
	return s.transferFn(ctx, in)
}

func (s *stubLedger) DeleteByID(ctx context.Context, cardID uuid.UUID) error {
	return s.deleteFn(ctx, cardID)
}

func (s *stubLedger) ListOwned(ctx context.Context, ownerID uuid.UUID, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error) {
	return s.ownedFn(ctx, ownerID, status, page)
}

func (s *stubLedger) ListAll(ctx context.Context, username string, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error) {
	return s.allFn(ctx, username, status, page)
}

func (s *stubLedger) RevealPAN(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID) (string, error) {
	return s.revealFn(ctx, cardID, owner)
}

type stubUsers struct {
	registerFn func(ctx context.Context, username, password string) (*domain.User, error)
	createFn   func(ctx context.Context, username, password string, roles []string) (*domain.User, error)
	listFn     func(ctx context.Context) ([]*domain.User, error)
	rolesFn    func(ctx context.Context, id uuid.UUID, roles []string) (*domain.User, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
}

func (s *stubUsers) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.registerFn(ctx, username, password)
}

func (s *stubUsers) CreateUser(ctx context.Context, username, password string, roles []string) (*domain.User, error) {
	return s.createFn(ctx, username, password, roles)
}

func (s *stubUsers) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubUsers) UpdateRoles(ctx context.Context, id uuid.UUID, roles []string) (*domain.User, error) {
	return s.rolesFn(ctx, id, roles)
}

func (s *stubUsers) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

type stubAuth struct {
	loginFn func(ctx context.Context, username, password string) (string, *domain.User, error)
}

func (s *stubAuth) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, username, password)
}

type stubAudit struct {
	historyFn func(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error)
}

func (s *stubAudit) Record(context.Context, domain.LedgerEvent) error { return nil }

func (s *stubAudit) CardHistory(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error) {
	return s.historyFn(ctx, cardID, limit)
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newContext builds a context for target. caller may be uuid.Nil for
// unauthenticated routes. Path params are passed as name/value pairs.
func newContext(e *echo.Echo, method, target, body string, caller uuid.UUID, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != uuid.Nil {
		middleware.SetIdentity(c, middleware.Identity{UserID: caller, Roles: []domain.Role{domain.RoleUser}})
	}
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func sampleCard(owner uuid.UUID) *domain.Card {
	return &domain.Card{
		ID:       uuid.New(),
		PANLast4: "4242",
		OwnerID:  owner,
		Expiry:   time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:   domain.CardActive,
		Balance:  decimal.RequireFromString("10.5"),
	}
}

