package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveredOrder(t *testing.T, customer Actor, shop Actor) *Order {
	t.Helper()
	order := NewOrder(customer, shop.ShopID, []OrderItem{
		{ProductID: uuid.New(), Name: "Wool Coat", UnitPrice: 120, Quantity: 2},
	}, ShippingAddress{})
	for _, next := range []OrderStatus{
		OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
	} {
		require.NoError(t, order.ApplyTransition(shop, next, ""))
	}
	return order
}

func TestNewReturnRequest_ComputesRefund(t *testing.T) {
	customer := customerActor()
	shop := shopActor()
	order := deliveredOrder(t, customer, shop)
	item := order.Items[0]

	ret := NewReturnRequest(customer, order, []ReturnItem{
		{OrderItemID: item.ID, ProductID: item.ProductID, Quantity: 2, UnitPrice: item.UnitPrice},
	}, ReturnReasonDefective, "seam came apart")

	assert.Equal(t, 240.0, ret.RefundAmount)
	assert.Equal(t, ReturnStatusPending, ret.Status())
	assert.Equal(t, order.ID, ret.OrderID)
	assert.Equal(t, order.ShopID, ret.ShopID)
	assert.Equal(t, order.CustomerID, ret.CustomerID)
}

func TestReturnStatus_Adjacency(t *testing.T) {
	cases := []struct {
		from, to ReturnStatus
		ok       bool
	}{
		{ReturnStatusPending, ReturnStatusApproved, true},
		{ReturnStatusPending, ReturnStatusRejected, true},
		{ReturnStatusApproved, ReturnStatusCompleted, true},
		{ReturnStatusPending, ReturnStatusCompleted, false},
		{ReturnStatusApproved, ReturnStatusRejected, false},
		{ReturnStatusApproved, ReturnStatusPending, false},
		{ReturnStatusRejected, ReturnStatusApproved, false},
		{ReturnStatusCompleted, ReturnStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestReturnRequest_ApplyTransition_CustomerForbidden(t *testing.T) {
	customer := customerActor()
	shop := shopActor()
	order := deliveredOrder(t, customer, shop)
	ret := NewReturnRequest(customer, order, nil, ReturnReasonOther, "")

	err := ret.ApplyTransition(customer, ReturnStatusApproved, "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
	assert.Equal(t, ReturnStatusPending, ret.Status())
}

func TestReturnRequest_ApplyTransition_TerminalRejected(t *testing.T) {
	customer := customerActor()
	shop := shopActor()
	order := deliveredOrder(t, customer, shop)
	ret := NewReturnRequest(customer, order, nil, ReturnReasonOther, "")

	require.NoError(t, ret.ApplyTransition(shop, ReturnStatusRejected, "worn"))

	err := ret.ApplyTransition(shop, ReturnStatusApproved, "")
	assert.True(t, IsKind(err, KindInvalidTransition))
	assert.Equal(t, ReturnStatusRejected, ret.Status())
}

func TestClaimedQuantities_SkipsRejected(t *testing.T) {
	customer := customerActor()
	shop := shopActor()
	order := deliveredOrder(t, customer, shop)
	itemID := order.Items[0].ID

	first := NewReturnRequest(customer, order, []ReturnItem{
		{OrderItemID: itemID, Quantity: 1, UnitPrice: 120},
	}, ReturnReasonDefective, "")
	second := NewReturnRequest(customer, order, []ReturnItem{
		{OrderItemID: itemID, Quantity: 1, UnitPrice: 120},
	}, ReturnReasonChangedMind, "")
	require.NoError(t, second.ApplyTransition(shop, ReturnStatusRejected, ""))

	claimed := ClaimedQuantities([]*ReturnRequest{first, second})
	assert.Equal(t, 1, claimed[itemID])
}

func TestCreateReturnRequest_Validate(t *testing.T) {
	itemID := uuid.New()
	valid := CreateReturnRequest{
		OrderID: uuid.New(),
		Items:   []ReturnItemRequest{{OrderItemID: itemID, Quantity: 1}},
		Reason:  ReturnReasonDefective,
	}
	require.NoError(t, valid.Validate())

	badReason := valid
	badReason.Reason = "because"
	assert.True(t, IsKind(badReason.Validate(), KindValidation))

	duplicate := valid
	duplicate.Items = []ReturnItemRequest{
		{OrderItemID: itemID, Quantity: 1},
		{OrderItemID: itemID, Quantity: 1},
	}
	assert.True(t, IsKind(duplicate.Validate(), KindValidation))
}
