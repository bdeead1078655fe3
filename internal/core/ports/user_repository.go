package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create returns domain.ErrUserExists on a username collision.
	Create(ctx context.Context, user *domain.User) error
	UpdateRoles(ctx context.Context, id uuid.UUID, roles []domain.Role) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
