package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

func newUserFixture() (*memStore, *UserService) {
	store := newMemStore()
	return store, NewUserService(&stubUserRepo{store}, discardLogger)
}

func TestUserService_Register_Success(t *testing.T) {
	_, svc := newUserFixture()

	user, err := svc.Register(context.Background(), "  alice ", "pass123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username not trimmed: %q", user.Username)
	}
	if user.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if user.PasswordHash == "pass123" {
		t.Fatal("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != domain.RoleUser {
		t.Fatalf("unexpected roles: %v", user.Roles)
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	_, svc := newUserFixture()

	if _, err := svc.Register(context.Background(), "bob", "pass"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass2"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	_, svc := newUserFixture()

	if _, err := svc.Register(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty username, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty password, got %v", err)
	}
}

func TestUserService_CreateUser_Roles(t *testing.T) {
	_, svc := newUserFixture()

	user, err := svc.CreateUser(context.Background(), "root", "pw", []string{"ADMIN", "USER", "ADMIN"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !user.HasRole(domain.RoleAdmin) || !user.HasRole(domain.RoleUser) || len(user.Roles) != 2 {
		t.Fatalf("unexpected roles: %v", user.Roles)
	}

	for _, roles := range [][]string{nil, {}, {"SUPERUSER"}, {"admin"}} {
		if _, err := svc.CreateUser(context.Background(), "x", "pw", roles); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("roles %v: expected ErrInvalidArgument, got %v", roles, err)
		}
	}
}

func TestUserService_UpdateRoles(t *testing.T) {
	_, svc := newUserFixture()
	ctx := context.Background()
	user, _ := svc.Register(ctx, "carol", "pw")

	updated, err := svc.UpdateRoles(ctx, user.ID, []string{"ADMIN"})
	if err != nil {
		t.Fatalf("UpdateRoles: %v", err)
	}
	if updated.HasRole(domain.RoleUser) || !updated.HasRole(domain.RoleAdmin) {
		t.Fatalf("roles must be replaced wholesale, got %v", updated.Roles)
	}

	if _, err := svc.UpdateRoles(ctx, user.ID, []string{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty roles, got %v", err)
	}
	if _, err := svc.UpdateRoles(ctx, uuid.New(), []string{"USER"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_ListAndDelete(t *testing.T) {
	store, svc := newUserFixture()
	ctx := context.Background()
	a, _ := svc.Register(ctx, "anna", "pw")
	_, _ = svc.Register(ctx, "boris", "pw")
	cardID := uuid.New()
	store.cards[cardID] = &domain.Card{ID: cardID, OwnerID: a.ID}

	users, err := svc.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers = %d users, %v", len(users), err)
	}

	if err := svc.DeleteUser(ctx, a.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if len(store.cards) != 0 {
		t.Error("owned cards must be removed with the user")
	}
	if err := svc.DeleteUser(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	_, svc := newUserFixture()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "admin-pw")
	if err != nil || !created {
		t.Fatalf("first EnsureAdmin = %v, %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "admin", "other-pw")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin = %v, %v", created, err)
	}
}
