package domain

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleShop, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller, as established by the gateway.
// ShopID is set only for shop staff and scopes them to their own shop.
type Actor struct {
	ID     uuid.UUID
	Role   Role
	ShopID uuid.UUID
}
