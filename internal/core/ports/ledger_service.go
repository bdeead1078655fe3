package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

// CreateCardInput carries everything needed to issue a card.
type CreateCardInput struct {
	OwnerID uuid.UUID
	PAN     string
	Expiry  time.Time
}

// TransferInput describes a move of money between two cards of one owner.
type TransferInput struct {
	OwnerID    uuid.UUID
	FromCardID uuid.UUID
	ToCardID   uuid.UUID
	Amount     decimal.Decimal
}

// TransferResult holds both legs after commit.
type TransferResult struct {
	From *domain.Card
	To   *domain.Card
}

// LedgerService is the funds-movement engine. A nil owner means an
// administrative caller and switches lookups to id only.
type LedgerService interface {
	CreateCard(ctx context.Context, input CreateCardInput) (*domain.Card, error)
	ChangeStatus(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID, status domain.CardStatus) (*domain.Card, error)
	TopUp(ctx context.Context, ownerID, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error)
	AdminTopUp(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (*domain.Card, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	DeleteByID(ctx context.Context, cardID uuid.UUID) error
	ListOwned(ctx context.Context, ownerID uuid.UUID, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error)
	ListAll(ctx context.Context, username string, status *domain.CardStatus, page domain.PageRequest) (*domain.CardPage, error)
	RevealPAN(ctx context.Context, cardID uuid.UUID, owner *uuid.UUID) (string, error)
}

// PANCipher converts a card number to and from its at-rest token.
type PANCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) (string, error)
}
