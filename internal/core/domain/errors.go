package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every ledger failure wraps exactly one of these so callers can
// branch with errors.Is without knowing the specific cause.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrCryptoFailure   = errors.New("crypto failure")
)

var (
	ErrCardNotFound      = fmt.Errorf("card %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	ErrAmountScale       = fmt.Errorf("%w: amount must have at most 2 decimal places", ErrInvalidArgument)
	ErrAmountOutOfRange  = fmt.Errorf("%w: amount out of range", ErrInvalidArgument)
	ErrSameCard          = fmt.Errorf("%w: source and destination cards must differ", ErrInvalidArgument)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown card status", ErrInvalidArgument)
	ErrInvalidRoles      = fmt.Errorf("%w: roles must be a non-empty subset of ADMIN, USER", ErrInvalidArgument)
	ErrCardInactive      = fmt.Errorf("%w: card must be active", ErrInvalidState)
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrInvalidState)
)

// Auth-side errors live outside the ledger taxonomy.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
)
