package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

const identityKey = "identity"

// Identity is the authenticated caller resolved from the bearer token.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Roles    []domain.Role
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (i Identity) HasAnyRole(roles ...domain.Role) bool {
	for _, held := range i.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// SetIdentity stores the caller on the request context.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the caller stored by Auth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}
