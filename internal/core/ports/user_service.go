package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

// UserService manages accounts and their role sets.
type UserService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	CreateUser(ctx context.Context, username, password string, roles []string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateRoles(ctx context.Context, id uuid.UUID, roles []string) (*domain.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// AuthService issues bearer tokens for valid credentials.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}
