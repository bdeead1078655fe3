package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEventType names a committed card mutation.
type LedgerEventType string

const (
	EventCardCreated   LedgerEventType = "card_created"
	EventStatusChanged LedgerEventType = "status_changed"
	EventToppedUp      LedgerEventType = "topped_up"
	EventTransferred   LedgerEventType = "transferred"
	EventCardDeleted   LedgerEventType = "card_deleted"
)

// LedgerEvent records a committed mutation for the audit journal.
type LedgerEvent struct {
	ID             uuid.UUID
	Type           LedgerEventType
	CardID         uuid.UUID
	OwnerID        uuid.UUID
	CounterpartyID uuid.UUID // destination card for transfers
	Amount         decimal.Decimal
	Status         CardStatus
	BalanceAfter   decimal.Decimal
	ActorID        uuid.UUID // uuid.Nil for administrative calls without an identity
	OccurredAt     time.Time
}
