package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/stylelane/orders-service/internal/domain"
)

func TestEvaluate_CustomerOwnership(t *testing.T) {
	e := NewEvaluator()
	customerID := uuid.New()
	actor := domain.Actor{ID: customerID, Role: domain.RoleCustomer}
	res := Scope{CustomerID: customerID}

	assert.NoError(t, e.Evaluate(actor, OrderRead, res))
	assert.NoError(t, e.Evaluate(actor, ReturnCreate, res))

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	err := e.Evaluate(stranger, OrderRead, res)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestEvaluate_ShopOwnership(t *testing.T) {
	e := NewEvaluator()
	shopID := uuid.New()
	shop := domain.Actor{ID: uuid.New(), Role: domain.RoleShop, ShopID: shopID}

	assert.NoError(t, e.Evaluate(shop, OrderUpdateStatus, Scope{ShopID: shopID}))
	assert.NoError(t, e.Evaluate(shop, ReturnUpdateStatus, Scope{ShopID: shopID}))

	otherShop := Scope{ShopID: uuid.New()}
	err := e.Evaluate(shop, OrderUpdateStatus, otherShop)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestEvaluate_AdminBypassesOwnership(t *testing.T) {
	e := NewEvaluator()
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	res := Scope{CustomerID: uuid.New(), ShopID: uuid.New()}

	assert.NoError(t, e.Evaluate(admin, OrderRead, res))
	assert.NoError(t, e.Evaluate(admin, OrderUpdateStatus, res))
	assert.NoError(t, e.Evaluate(admin, ReturnUpdateStatus, res))
}

func TestEvaluate_CustomerCannotModerateReturns(t *testing.T) {
	e := NewEvaluator()
	customerID := uuid.New()
	customer := domain.Actor{ID: customerID, Role: domain.RoleCustomer}

	err := e.Evaluate(customer, ReturnUpdateStatus, Scope{CustomerID: customerID})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestEvaluate_ShopCannotCreateOrders(t *testing.T) {
	e := NewEvaluator()
	shopID := uuid.New()
	shop := domain.Actor{ID: uuid.New(), Role: domain.RoleShop, ShopID: shopID}

	err := e.Evaluate(shop, OrderCreate, Scope{ShopID: shopID})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestEvaluate_OnOrderResource(t *testing.T) {
	e := NewEvaluator()
	customer := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	shop := domain.Actor{ID: uuid.New(), Role: domain.RoleShop, ShopID: uuid.New()}

	order := domain.NewOrder(customer, shop.ShopID, []domain.OrderItem{
		{ProductID: uuid.New(), UnitPrice: 5, Quantity: 1},
	}, domain.ShippingAddress{})

	assert.NoError(t, e.Evaluate(customer, OrderRead, order))
	assert.NoError(t, e.Evaluate(shop, OrderUpdateStatus, order))
}
