// Package policy maps (actor role, action, resource ownership) to an
// allow/deny decision. The rules live in one table consulted by both
// engines instead of per-endpoint branching.
package policy

import (
	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

type Action string

const (
	OrderCreate        Action = "order.create"
	OrderRead          Action = "order.read"
	OrderUpdateStatus  Action = "order.update_status"
	ReturnCreate       Action = "return.create"
	ReturnRead         Action = "return.read"
	ReturnUpdateStatus Action = "return.update_status"
)

// Resource is anything the policy can gate: an order, a return, or a
// listing scope.
type Resource interface {
	OwnerCustomerID() uuid.UUID
	OwnerShopID() uuid.UUID
}

// Scope is the resource stand-in for listing endpoints, where the thing
// being accessed is "all orders of this customer/shop".
type Scope struct {
	CustomerID uuid.UUID
	ShopID     uuid.UUID
}

func (s Scope) OwnerCustomerID() uuid.UUID { return s.CustomerID }
func (s Scope) OwnerShopID() uuid.UUID     { return s.ShopID }

type ownership func(actor domain.Actor, res Resource) bool

func ownsCustomer(actor domain.Actor, res Resource) bool {
	return actor.ID != uuid.Nil && actor.ID == res.OwnerCustomerID()
}

func ownsShop(actor domain.Actor, res Resource) bool {
	return actor.ShopID != uuid.Nil && actor.ShopID == res.OwnerShopID()
}

func always(domain.Actor, Resource) bool { return true }

type rule struct {
	role domain.Role
	owns ownership
}

var rules = map[Action][]rule{
	OrderCreate: {
		{domain.RoleCustomer, ownsCustomer},
	},
	OrderRead: {
		{domain.RoleCustomer, ownsCustomer},
		{domain.RoleShop, ownsShop},
		{domain.RoleAdmin, always},
	},
	// Which transitions each role may perform is the state machine's
	// concern; here only role and ownership are gated.
	OrderUpdateStatus: {
		{domain.RoleCustomer, ownsCustomer},
		{domain.RoleShop, ownsShop},
		{domain.RoleAdmin, always},
	},
	ReturnCreate: {
		{domain.RoleCustomer, ownsCustomer},
	},
	ReturnRead: {
		{domain.RoleCustomer, ownsCustomer},
		{domain.RoleShop, ownsShop},
		{domain.RoleAdmin, always},
	},
	ReturnUpdateStatus: {
		{domain.RoleShop, ownsShop},
		{domain.RoleAdmin, always},
	},
}

type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns nil when the actor may perform the action on the
// resource, or a Forbidden error. It has no side effects and is called
// before any mutation is attempted.
func (e *Evaluator) Evaluate(actor domain.Actor, action Action, res Resource) error {
	for _, r := range rules[action] {
		if r.role == actor.Role && r.owns(actor, res) {
			return nil
		}
	}
	return domain.NewForbidden("not allowed", map[string]interface{}{
		"action": string(action),
		"role":   string(actor.Role),
	})
}
