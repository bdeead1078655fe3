package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

// EventPublisher receives ledger events after their transaction committed.
// Publish must not block the caller on journal I/O.
type EventPublisher interface {
	Publish(event domain.LedgerEvent)
}

// AuditRepository persists the append-only ledger journal.
type AuditRepository interface {
	// Insert is idempotent on event ID.
	Insert(ctx context.Context, event domain.LedgerEvent) error
	ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error)
}

// AuditService writes and reads the ledger journal.
type AuditService interface {
	Record(ctx context.Context, event domain.LedgerEvent) error
	CardHistory(ctx context.Context, cardID uuid.UUID, limit int) ([]domain.LedgerEvent, error)
}
