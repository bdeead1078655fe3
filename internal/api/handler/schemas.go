package handler

import "github.com/shopspring/decimal"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// --- Users ---

type createUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=100"`
	Password string   `json:"password" validate:"required,min=6"`
	Roles    []string `json:"roles"    validate:"required,min=1,dive,oneof=ADMIN USER"`
}

type updateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=ADMIN USER"`
}

type userResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// --- Cards ---

type createCardRequest struct {
	OwnerID string `json:"owner_id" validate:"required,uuid"`
	PAN     string `json:"pan"      validate:"required,len=16,numeric"`
	Expiry  string `json:"expiry"   validate:"required,datetime=2006-01-02"`
}

// amountRequest accepts the amount as a JSON number or string.
// Range and scale are enforced by the ledger.
type amountRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"100.00"`
}

type transferRequest struct {
	FromCardID string          `json:"from_card_id" validate:"required,uuid"`
	ToCardID   string          `json:"to_card_id"   validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"       swaggertype:"string" example:"25.50"`
}

type cardResponse struct {
	ID           string `json:"id"`
	MaskedNumber string `json:"masked_number"`
	Expiry       string `json:"expiry"`
	Status       string `json:"status"`
	Balance      string `json:"balance"`
	OwnerID      string `json:"owner_id"`
}

type cardPageResponse struct {
	Items      []cardResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type transferResponse struct {
	From cardResponse `json:"from"`
	To   cardResponse `json:"to"`
}

type panResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

type eventResponse struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	CardID         string `json:"card_id"`
	OwnerID        string `json:"owner_id"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Status         string `json:"status,omitempty"`
	BalanceAfter   string `json:"balance_after"`
	ActorID        string `json:"actor_id,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}
