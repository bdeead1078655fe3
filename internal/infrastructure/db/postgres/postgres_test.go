package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/core/security"
	"github.com/effectivemobile/bank-cards/internal/core/service"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"ivan":    "ivan",
		"50%_off": `50\%\_off`,
		`a\b`:     `a\\b`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBalanceWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"negative balance", &pgconn.PgError{Code: pgCheckViolation}, domain.ErrInsufficientFunds},
		{"numeric overflow", &pgconn.PgError{Code: pgNumericOutOfRange}, domain.ErrAmountOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := balanceWriteError(tt.err, "update card"); !errors.Is(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	if !errors.Is(domain.ErrAmountOutOfRange, domain.ErrInvalidArgument) {
		t.Fatal("overflow must be an invalid argument")
	}

	other := &pgconn.PgError{Code: "57014"}
	got := balanceWriteError(other, "update card")
	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) || errors.Is(got, domain.ErrInvalidArgument) {
		t.Fatalf("unrelated errors must pass through wrapped, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Integration tests (need CARDS_TEST_DATABASE_URL)
// ---------------------------------------------------------------------------

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("CARDS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CARDS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, Config{URL: url, MaxConns: 8})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return pool
}

func createTestUser(t *testing.T, users *UserRepository, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Username:     name + "-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Roles:        []domain.Role{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { _ = users.DeleteByID(context.Background(), u.ID) })
	return u
}

func TestPostgres_UserRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)

	u := createTestUser(t, users, "olga")
	if err := users.Create(ctx, u); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate create: expected ErrUserExists, got %v", err)
	}

	exists, err := users.ExistsByUsername(ctx, u.Username)
	if err != nil || !exists {
		t.Fatalf("ExistsByUsername = %v, %v", exists, err)
	}

	updated, err := users.UpdateRoles(ctx, u.ID, []domain.Role{domain.RoleAdmin, domain.RoleUser})
	if err != nil {
		t.Fatalf("UpdateRoles: %v", err)
	}
	if !updated.HasRole(domain.RoleAdmin) || !updated.HasRole(domain.RoleUser) {
		t.Fatalf("roles = %v", updated.Roles)
	}

	if _, err := users.FindByID(ctx, uuid.New()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgres_LedgerFlow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	cards := NewCardRepository(pool)
	cipher, err := security.NewPANCipher("integration-secret")
	if err != nil {
		t.Fatalf("NewPANCipher: %v", err)
	}
	svc := service.NewLedgerService(NewTransactor(pool), cards, cipher, nil, zerolog.Nop())

	owner := createTestUser(t, users, "ivan")
	create := func(pan string) *domain.Card {
		c, err := svc.CreateCard(ctx, ports.CreateCardInput{OwnerID: owner.ID, PAN: pan, Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})
		if err != nil {
			t.Fatalf("CreateCard: %v", err)
		}
		return c
	}
	a := create("4111111111111111")
	b := create("4111111111111111")

	if _, err := svc.AdminTopUp(ctx, a.ID, decimal.RequireFromString("10.00")); err != nil {
		t.Fatalf("AdminTopUp: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, ports.TransferInput{OwnerID: owner.ID, FromCardID: from, ToCardID: to, Amount: decimal.RequireFromString("0.50")})
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("Transfer: %v", err)
			}
		}()
	}
	wg.Wait()

	ga, err := cards.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	gb, err := cards.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if sum := ga.Balance.Add(gb.Balance); !sum.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("balances not conserved: %s + %s", ga.Balance, gb.Balance)
	}

	page, err := svc.ListAll(ctx, owner.Username[:4], nil, domain.PageRequest{})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if page.Total < 2 {
		t.Fatalf("ListAll total = %d, want >= 2", page.Total)
	}

	counts, err := cards.CountByStatus(ctx)
	if err != nil || counts[domain.CardActive] < 2 {
		t.Fatalf("CountByStatus = %v, %v", counts, err)
	}

	if err := svc.DeleteByID(ctx, a.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := cards.FindByID(ctx, a.ID); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound after delete, got %v", err)
	}
}
