package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

// CardFilter carries all query parameters for listing cards.
type CardFilter struct {
	OwnerID       *uuid.UUID         // nil = every owner (admin)
	Status        *domain.CardStatus // optional
	OwnerUsername string             // optional: case-insensitive substring of the owner's username
	Page          domain.PageRequest
}

// CardRepository defines persistence operations for cards.
//
// When obtained through Transactor.InTx, FindByID and FindByIDAndOwner lock the
// returned row until the transaction ends.
type CardRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	// FindByIDAndOwner returns domain.ErrCardNotFound when the card does not
	// exist or belongs to someone else.
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Card, error)
	List(ctx context.Context, filter CardFilter) ([]*domain.Card, int64, error)
	Create(ctx context.Context, card *domain.Card) error
	// Save persists status and balance of an existing card.
	Save(ctx context.Context, card *domain.Card) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[domain.CardStatus]int64, error)
}

// Transactor runs fn inside a single storage transaction. fn's repositories
// are bound to that transaction; returning an error rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

// TxRepositories are the stores available inside a transaction.
type TxRepositories struct {
	Cards CardRepository
	Users UserRepository
}
