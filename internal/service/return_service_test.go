package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylelane/orders-service/internal/domain"
	"github.com/stylelane/orders-service/internal/messaging"
	"github.com/stylelane/orders-service/internal/policy"
	"github.com/stylelane/orders-service/internal/repository"
)

type returnFixture struct {
	*orderFixture
	returns *repository.MemoryReturnRepository
	svc     *ReturnService
}

func newReturnFixture(t *testing.T) *returnFixture {
	t.Helper()
	base := newOrderFixture(t)
	f := &returnFixture{
		orderFixture: base,
		returns:      repository.NewMemoryReturnRepository(),
	}
	f.svc = NewReturnService(
		f.returns, f.orders, f.inv,
		policy.NewEvaluator(), f.notifier, zap.NewNop(),
	)
	return f
}

// placeDeliveredOrder runs an order through the full lifecycle so a
// return can be opened against it.
func (f *returnFixture) placeDeliveredOrder(t *testing.T, product domain.Product, qty int) *domain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := f.orderFixture.svc.CreateOrder(ctx, f.customer, orderRequest(f.shopID,
		domain.OrderItemRequest{ProductID: product.ID, Quantity: qty},
	))
	require.NoError(t, err)
	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered,
	} {
		_, err = f.orderFixture.svc.UpdateOrderStatus(ctx, f.shop, order.ID, next, "")
		require.NoError(t, err)
	}
	return order
}

func returnRequest(order *domain.Order, qty int, reason domain.ReturnReason) domain.CreateReturnRequest {
	return domain.CreateReturnRequest{
		OrderID: order.ID,
		Items: []domain.ReturnItemRequest{
			{OrderItemID: order.Items[0].ID, Quantity: qty},
		},
		Reason: reason,
	}
}

// Full lifecycle: buy three units, return one, approve, complete. The
// refund equals the snapshot price and the completed unit goes back to
// available stock.
func TestReturnLifecycle_CompleteRestocks(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 3)

	ret, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	require.NoError(t, err)
	assert.Equal(t, 10.0, ret.RefundAmount)
	assert.Equal(t, domain.ReturnStatusPending, ret.Status())

	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusApproved, "")
	require.NoError(t, err)

	record, _ := f.inv.GetRecord(ctx, domain.VariantRef{ProductID: product.ID})
	assert.Equal(t, 2, record.Available, "approval alone must not restock")

	completed, err := f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusCompleted, "received")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusCompleted, completed.Status())

	record, _ = f.inv.GetRecord(ctx, domain.VariantRef{ProductID: product.ID})
	assert.Equal(t, 3, record.Available)
}

func TestCreateReturn_RequiresDeliveredOrder(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()

	order, err := f.orderFixture.svc.CreateOrder(ctx, f.customer, orderRequest(f.shopID,
		domain.OrderItemRequest{ProductID: product.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}

func TestCreateReturn_OverClaimConflict(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 3)

	_, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 2, domain.ReturnReasonDefective))
	require.NoError(t, err)

	_, err = f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 2, domain.ReturnReasonChangedMind))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	_, err = f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonChangedMind))
	assert.NoError(t, err, "the last unclaimed unit is still returnable")
}

func TestCreateReturn_RejectedClaimFreesQuantity(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 2)

	first, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 2, domain.ReturnReasonChangedMind))
	require.NoError(t, err)

	_, err = f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, first.ID, domain.ReturnStatusRejected, "worn")
	require.NoError(t, err)

	_, err = f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 2, domain.ReturnReasonDefective))
	assert.NoError(t, err, "rejected claims release their quantities")

	record, _ := f.inv.GetRecord(ctx, domain.VariantRef{ProductID: product.ID})
	assert.Equal(t, 3, record.Available, "rejection must never restock")
}

func TestCreateReturn_ItemFromAnotherOrder(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 10)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 1)

	req := domain.CreateReturnRequest{
		OrderID: order.ID,
		Items: []domain.ReturnItemRequest{
			{OrderItemID: uuid.New(), Quantity: 1},
		},
		Reason: domain.ReturnReasonWrongItem,
	}
	_, err := f.svc.CreateReturn(ctx, f.customer, req)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCreateReturn_StrangerForbidden(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 1)

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	_, err := f.svc.CreateReturn(ctx, stranger, returnRequest(order, 1, domain.ReturnReasonOther))
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

// Concurrent claims against the same order item must never exceed the
// purchased quantity.
func TestCreateReturn_ConcurrentClaimsSerialized(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 10)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 2)

	const claimants = 5
	var wg sync.WaitGroup
	results := make(chan error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonOther))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, domain.IsKind(err, domain.KindConflict))
		}
	}
	assert.Equal(t, 2, succeeded)
}

func TestUpdateReturnStatus_CustomerForbidden(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 1)

	ret, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	require.NoError(t, err)

	_, err = f.svc.UpdateReturnStatus(ctx, f.customer, ret.ID, domain.ReturnStatusApproved, "")
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestUpdateReturnStatus_SkipApprovalRejected(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 1)

	ret, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	require.NoError(t, err)

	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusCompleted, "")
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))

	record, _ := f.inv.GetRecord(ctx, domain.VariantRef{ProductID: product.ID})
	assert.Equal(t, 4, record.Available, "failed completion must not restock")
}

// Restock is an unconditional increment: stock sold in the meantime does
// not change what a completed return gives back.
func TestReturnRestock_IndependentOfIntermediateSales(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 3)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 2)

	_, err := f.orderFixture.svc.CreateOrder(ctx, f.customer, orderRequest(f.shopID,
		domain.OrderItemRequest{ProductID: product.ID, Quantity: 1},
	))
	require.NoError(t, err)

	ret, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 2, domain.ReturnReasonDefective))
	require.NoError(t, err)
	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusApproved, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusCompleted, "")
	require.NoError(t, err)

	record, _ := f.inv.GetRecord(ctx, domain.VariantRef{ProductID: product.ID})
	assert.Equal(t, 2, record.Available)
	assert.Equal(t, 3, record.Reserved, "holds of other orders stay untouched")
}

func TestReturnNotifications(t *testing.T) {
	f := newReturnFixture(t)
	product := f.seed("Linen Shirt", 10, 5)
	ctx := context.Background()
	order := f.placeDeliveredOrder(t, product, 1)

	before := len(f.notifier.Events())
	ret, err := f.svc.CreateReturn(ctx, f.customer, returnRequest(order, 1, domain.ReturnReasonDefective))
	require.NoError(t, err)
	_, err = f.svc.UpdateReturnStatus(ctx, f.shop, ret.ID, domain.ReturnStatusApproved, "")
	require.NoError(t, err)

	events := f.notifier.Events()[before:]
	require.Len(t, events, 2)
	assert.Equal(t, messaging.ReturnCreatedEvent, events[0].EventType)
	assert.Equal(t, messaging.ReturnStatusChangedEvent, events[1].EventType)
	assert.Equal(t, ret.ID, events[1].ReturnID)
}
