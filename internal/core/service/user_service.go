package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// UserService manages accounts. Passwords are stored as bcrypt hashes.
type UserService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

var _ ports.UserService = (*UserService)(nil)

// Register creates a self-service account holding only the USER role.
func (s *UserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.create(ctx, username, password, []domain.Role{domain.RoleUser})
}

// CreateUser is the admin path and accepts an explicit role set.
func (s *UserService) CreateUser(ctx context.Context, username, password string, roles []string) (*domain.User, error) {
	parsed, err := domain.ParseRoles(roles)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.create(ctx, username, password, parsed)
}

func (s *UserService) create(ctx context.Context, username, password string, roles []domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidArgument)
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Strs("roles", user.RoleStrings()).Msg("user created")
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateRoles replaces the role set wholesale.
func (s *UserService) UpdateRoles(ctx context.Context, id uuid.UUID, roles []string) (*domain.User, error) {
	parsed, err := domain.ParseRoles(roles)
	if err != nil {
		return nil, fmt.Errorf("update roles: %w", err)
	}
	user, err := s.repo.UpdateRoles(ctx, id, parsed)
	if err != nil {
		return nil, fmt.Errorf("update roles: %w", err)
	}
	s.log.Info().Str("user_id", id.String()).Strs("roles", user.RoleStrings()).Msg("user roles updated")
	return user, nil
}

// DeleteUser removes the account. Storage cascades the delete to owned cards.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// EnsureAdmin creates username with the ADMIN role unless it already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.create(ctx, username, password, []domain.Role{domain.RoleAdmin}); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	return true, nil
}
