package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus represents the lifecycle state of a card.
type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
	CardExpired CardStatus = "EXPIRED"
)

// CardStatuses lists every status in display order.
var CardStatuses = []CardStatus{CardActive, CardBlocked, CardExpired}

// ParseCardStatus converts raw input into a CardStatus.
func ParseCardStatus(s string) (CardStatus, error) {
	for _, st := range CardStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// BalanceScale is the number of fractional digits the store keeps for money.
const BalanceScale = 2

const maskPrefix = "**** **** **** "

// Card is the ledger aggregate. PANEncrypted never leaves the core.
type Card struct {
	ID           uuid.UUID
	PANEncrypted string
	PANLast4     string
	OwnerID      uuid.UUID
	Expiry       time.Time
	Status       CardStatus
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MaskedNumber is the only form of the card number handed to callers.
func (c *Card) MaskedNumber() string {
	return maskPrefix + c.PANLast4
}

// IsActive reports whether the card accepts money movement.
func (c *Card) IsActive() bool {
	return c.Status == CardActive
}

// Last4 returns the trailing four characters of pan, or all of it when shorter.
func Last4(pan string) string {
	r := []rune(pan)
	if len(r) <= 4 {
		return pan
	}
	return string(r[len(r)-4:])
}
