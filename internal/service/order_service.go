package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stylelane/orders-service/internal/domain"
	"github.com/stylelane/orders-service/internal/messaging"
	"github.com/stylelane/orders-service/internal/policy"
	"github.com/stylelane/orders-service/internal/repository"
)

// casRetries bounds the re-read/re-validate loop on optimistic version
// conflicts before the call surfaces as retryable.
const casRetries = 3

// publishRetries bounds notification publish attempts. Delivery is
// best-effort and never gates the state change.
const publishRetries = 3

// Notifier is the outbound edge to the notification dispatcher. Calls
// happen after the state mutation commits; failures are logged, never
// propagated.
type Notifier interface {
	PublishWithRetry(event messaging.NotificationEvent, maxRetries int) error
}

type OrderService struct {
	orders       repository.OrderRepository
	reservations repository.ReservationRepository
	ledger       repository.InventoryLedger
	catalog      repository.ProductCatalog
	policy       *policy.Evaluator
	notifier     Notifier
	log          *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	reservations repository.ReservationRepository,
	ledger repository.InventoryLedger,
	catalog repository.ProductCatalog,
	evaluator *policy.Evaluator,
	notifier Notifier,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:       orders,
		reservations: reservations,
		ledger:       ledger,
		catalog:      catalog,
		policy:       evaluator,
		notifier:     notifier,
		log:          log,
	}
}

// CreateOrder reserves stock per item, snapshots prices and persists the
// order in pending. Reservations are individually atomic; if any item
// cannot be reserved, the ones already taken are released and no order is
// created.
func (s *OrderService) CreateOrder(ctx context.Context, actor domain.Actor, req domain.CreateOrderRequest) (*domain.Order, error) {
	if err := s.policy.Evaluate(actor, policy.OrderCreate, policy.Scope{CustomerID: actor.ID}); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for i, itemReq := range req.Items {
		product, err := s.catalog.GetProduct(ctx, itemReq.ProductID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.NewValidation("unknown product", map[string]interface{}{
					"item_index": i,
					"product_id": itemReq.ProductID.String(),
				})
			}
			return nil, err
		}
		if product.ShopID != req.ShopID {
			return nil, domain.NewValidation("product does not belong to shop", map[string]interface{}{
				"item_index": i,
				"product_id": product.ID.String(),
			})
		}
		if !product.Purchasable {
			return nil, domain.NewValidation("product is not purchasable", map[string]interface{}{
				"item_index": i,
				"product_id": product.ID.String(),
			})
		}

		items = append(items, domain.OrderItem{
			ID:              uuid.New(),
			ProductID:       product.ID,
			Name:            product.Name,
			Thumbnail:       product.Thumbnail,
			UnitPrice:       product.Price,
			Quantity:        itemReq.Quantity,
			SelectedOptions: itemReq.SelectedOptions,
		})
	}

	reserved, err := s.reserveAll(ctx, items)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(actor, req.ShopID, items, req.ToShippingAddress())
	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error("order persist failed, releasing reservations",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		s.releaseAll(ctx, reserved)
		return nil, domain.NewUnavailable("order could not be persisted")
	}

	ids := make([]uuid.UUID, len(reserved))
	for i, res := range reserved {
		ids[i] = res.ID
	}
	if err := s.reservations.BindToOrder(ctx, ids, order.ID); err != nil {
		// Unbound holds look abandoned to the reconciliation sweep, which
		// would hand the stock back while the order still owns it. Undo
		// the whole create instead of living with that window.
		s.log.Error("reservation bind failed, rolling back order",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		s.releaseAll(ctx, reserved)
		s.cancelOnRollback(ctx, actor, order)
		return nil, domain.NewUnavailable("order could not be completed")
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID.String()),
		zap.Float64("total_amount", order.TotalAmount))

	s.notify(messaging.NotificationEvent{
		EventType:  messaging.OrderCreatedEvent,
		OrderID:    order.ID,
		ShopID:     order.ShopID,
		CustomerID: order.CustomerID,
		Payload: messaging.OrderCreatedPayload{
			OrderNumber: order.OrderNumber,
			TotalAmount: order.TotalAmount,
			ItemCount:   len(order.Items),
		},
	})

	return order, nil
}

// reserveAll attempts each reservation in turn; on the first failure all
// prior holds are released (compensation, not a global transaction).
func (s *OrderService) reserveAll(ctx context.Context, items []domain.OrderItem) ([]*domain.StockReservation, error) {
	var reserved []*domain.StockReservation

	for _, item := range items {
		ref := domain.VariantRef{ProductID: item.ProductID, VariantKey: item.VariantKey()}
		if err := s.ledger.Reserve(ctx, ref, item.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.NewInsufficientStock(item.ProductID, ref.VariantKey, item.Quantity)
			}
			return nil, err
		}

		res := domain.NewStockReservation(ref, item.Quantity)
		if err := s.reservations.Create(ctx, res); err != nil {
			// Stock is decremented but the hold is unrecorded; undo the
			// decrement directly and fail the call.
			s.ledger.Release(ctx, ref, item.Quantity)
			s.releaseAll(ctx, reserved)
			return nil, domain.NewUnavailable("reservation could not be recorded")
		}
		reserved = append(reserved, res)
	}
	return reserved, nil
}

// cancelOnRollback moves a just-persisted order to cancelled after its
// holds were given back, so no pending order survives without stock.
func (s *OrderService) cancelOnRollback(ctx context.Context, actor domain.Actor, order *domain.Order) {
	if err := order.ApplyTransition(actor, domain.OrderStatusCancelled, "stock hold could not be secured"); err != nil {
		s.log.Error("rollback cancel failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	if err := s.orders.Update(ctx, order); err != nil {
		s.log.Error("rollback cancel persist failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func (s *OrderService) releaseAll(ctx context.Context, reservations []*domain.StockReservation) {
	for _, res := range reservations {
		if err := s.ledger.Release(ctx, res.Ref(), res.Quantity); err != nil {
			s.log.Error("compensating release failed",
				zap.String("reservation_id", res.ID.String()),
				zap.String("product_id", res.ProductID.String()),
				zap.Error(err))
			continue
		}
		if err := s.reservations.MarkReleased(ctx, res.ID); err != nil {
			s.log.Error("reservation status update failed",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}
}

// UpdateOrderStatus advances the order state machine. Cancellation
// releases the order's reservations back to available stock; no other
// transition touches inventory.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, next domain.OrderStatus, note string) (*domain.Order, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := s.policy.Evaluate(actor, policy.OrderUpdateStatus, order); err != nil {
			return nil, err
		}

		previous := order.Status()
		if err := order.ApplyTransition(actor, next, note); err != nil {
			return nil, err
		}

		if err := s.orders.Update(ctx, order); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				// Another actor advanced the order; re-read and
				// re-validate against the new state.
				continue
			}
			return nil, domain.NewUnavailable("order status could not be persisted")
		}

		if next == domain.OrderStatusCancelled {
			s.releaseOrderReservations(ctx, order.ID)
		}

		s.log.Info("order status changed",
			zap.String("order_id", order.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
			zap.String("actor_id", actor.ID.String()),
			zap.String("actor_role", string(actor.Role)))

		eventType := messaging.OrderStatusChangedEvent
		if next == domain.OrderStatusCancelled {
			eventType = messaging.OrderCancelledEvent
		}
		s.notify(messaging.NotificationEvent{
			EventType:  eventType,
			OrderID:    order.ID,
			ShopID:     order.ShopID,
			CustomerID: order.CustomerID,
			Payload: messaging.StatusChangedPayload{
				PreviousStatus: string(previous),
				NewStatus:      string(next),
				ActorRole:      string(actor.Role),
				Note:           note,
			},
		})

		return order, nil
	}

	return nil, domain.NewUnavailable("order is being updated concurrently, retry")
}

func (s *OrderService) releaseOrderReservations(ctx context.Context, orderID uuid.UUID) {
	reservations, err := s.reservations.ListByOrder(ctx, orderID)
	if err != nil {
		s.log.Error("reservation lookup failed on cancel",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}
	for _, res := range reservations {
		if res.Status != domain.ReservationCommitted {
			continue
		}
		if err := s.ledger.Release(ctx, res.Ref(), res.Quantity); err != nil {
			s.log.Error("release on cancel failed",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
			continue
		}
		if err := s.reservations.MarkReleased(ctx, res.ID); err != nil {
			s.log.Error("reservation status update failed",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(actor, policy.OrderRead, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListShopOrders(ctx context.Context, actor domain.Actor, shopID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	if err := s.policy.Evaluate(actor, policy.OrderRead, policy.Scope{ShopID: shopID}); err != nil {
		return nil, err
	}
	return s.orders.ListByShop(ctx, shopID, status)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, actor domain.Actor, customerID uuid.UUID) ([]*domain.Order, error) {
	if err := s.policy.Evaluate(actor, policy.OrderRead, policy.Scope{CustomerID: customerID}); err != nil {
		return nil, err
	}
	return s.orders.ListByCustomer(ctx, customerID)
}

func (s *OrderService) notify(event messaging.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishWithRetry(event, publishRetries); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("event_type", string(event.EventType)), zap.Error(err))
	}
}
