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

type ReturnService struct {
	returns  repository.ReturnRepository
	orders   repository.OrderRepository
	ledger   repository.InventoryLedger
	policy   *policy.Evaluator
	notifier Notifier
	log      *zap.Logger
}

func NewReturnService(
	returns repository.ReturnRepository,
	orders repository.OrderRepository,
	ledger repository.InventoryLedger,
	evaluator *policy.Evaluator,
	notifier Notifier,
	log *zap.Logger,
) *ReturnService {
	return &ReturnService{
		returns:  returns,
		orders:   orders,
		ledger:   ledger,
		policy:   evaluator,
		notifier: notifier,
		log:      log,
	}
}

// CreateReturn opens a claim against a delivered order. The claimable
// check and the insert run under a per-order lock so concurrent claims
// cannot overdraw an item.
func (s *ReturnService) CreateReturn(ctx context.Context, actor domain.Actor, req domain.CreateReturnRequest) (*domain.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(actor, policy.ReturnCreate, order); err != nil {
		return nil, err
	}
	if order.Status() != domain.OrderStatusDelivered {
		return nil, domain.NewInvalidTransition(string(order.Status()), "return requires a delivered order")
	}

	var ret *domain.ReturnRequest
	err = s.returns.WithOrderLock(ctx, order.ID, func(ctx context.Context) error {
		prior, err := s.returns.ListByOrder(ctx, order.ID)
		if err != nil {
			return domain.NewUnavailable("prior returns could not be read")
		}
		claimed := domain.ClaimedQuantities(prior)

		items := make([]domain.ReturnItem, 0, len(req.Items))
		for _, claim := range req.Items {
			orderItem, ok := order.Item(claim.OrderItemID)
			if !ok {
				return domain.NewValidation("item does not belong to order", map[string]interface{}{
					"order_item_id": claim.OrderItemID.String(),
				})
			}
			remaining := orderItem.Quantity - claimed[claim.OrderItemID]
			if claim.Quantity > remaining {
				return domain.NewConflict("claim exceeds remaining returnable quantity", map[string]interface{}{
					"order_item_id": claim.OrderItemID.String(),
					"requested":     claim.Quantity,
					"remaining":     remaining,
				})
			}
			items = append(items, domain.ReturnItem{
				OrderItemID: orderItem.ID,
				ProductID:   orderItem.ProductID,
				VariantKey:  orderItem.VariantKey(),
				Quantity:    claim.Quantity,
				UnitPrice:   orderItem.UnitPrice,
			})
		}

		ret = domain.NewReturnRequest(actor, order, items, req.Reason, req.Detail)
		if err := s.returns.Create(ctx, ret); err != nil {
			return domain.NewUnavailable("return could not be persisted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("return created",
		zap.String("return_id", ret.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Float64("refund_amount", ret.RefundAmount),
		zap.String("reason", string(ret.Reason)))

	s.notify(messaging.NotificationEvent{
		EventType:  messaging.ReturnCreatedEvent,
		OrderID:    order.ID,
		ReturnID:   ret.ID,
		ShopID:     ret.ShopID,
		CustomerID: ret.CustomerID,
		Payload: messaging.ReturnCreatedPayload{
			RefundAmount: ret.RefundAmount,
			Reason:       string(ret.Reason),
		},
	})

	return ret, nil
}

// UpdateReturnStatus drives the return state machine. Completion restocks
// the claimed quantities; rejection touches nothing.
func (s *ReturnService) UpdateReturnStatus(ctx context.Context, actor domain.Actor, returnID uuid.UUID, next domain.ReturnStatus, note string) (*domain.ReturnRequest, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		ret, err := s.returns.Get(ctx, returnID)
		if err != nil {
			return nil, err
		}
		if err := s.policy.Evaluate(actor, policy.ReturnUpdateStatus, ret); err != nil {
			return nil, err
		}

		previous := ret.Status()
		if err := ret.ApplyTransition(actor, next, note); err != nil {
			return nil, err
		}

		if err := s.returns.Update(ctx, ret); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, domain.NewUnavailable("return status could not be persisted")
		}

		if next == domain.ReturnStatusCompleted {
			s.restockItems(ctx, ret)
		}

		s.log.Info("return status changed",
			zap.String("return_id", ret.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
			zap.String("actor_id", actor.ID.String()))

		s.notify(messaging.NotificationEvent{
			EventType:  messaging.ReturnStatusChangedEvent,
			OrderID:    ret.OrderID,
			ReturnID:   ret.ID,
			ShopID:     ret.ShopID,
			CustomerID: ret.CustomerID,
			Payload: messaging.StatusChangedPayload{
				PreviousStatus: string(previous),
				NewStatus:      string(next),
				ActorRole:      string(actor.Role),
				Note:           note,
			},
		})

		return ret, nil
	}

	return nil, domain.NewUnavailable("return is being updated concurrently, retry")
}

// restockItems adds the claimed quantities back to available stock. The
// original reservation is long consumed, so this is an unconditional
// increment per variant.
func (s *ReturnService) restockItems(ctx context.Context, ret *domain.ReturnRequest) {
	for _, item := range ret.Items {
		ref := domain.VariantRef{ProductID: item.ProductID, VariantKey: item.VariantKey}
		if err := s.ledger.Restock(ctx, ref, item.Quantity); err != nil {
			s.log.Error("restock failed",
				zap.String("return_id", ret.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

func (s *ReturnService) GetReturn(ctx context.Context, actor domain.Actor, returnID uuid.UUID) (*domain.ReturnRequest, error) {
	ret, err := s.returns.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(actor, policy.ReturnRead, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *ReturnService) ListShopReturns(ctx context.Context, actor domain.Actor, shopID uuid.UUID, status *domain.ReturnStatus) ([]*domain.ReturnRequest, error) {
	if err := s.policy.Evaluate(actor, policy.ReturnRead, policy.Scope{ShopID: shopID}); err != nil {
		return nil, err
	}
	return s.returns.ListByShop(ctx, shopID, status)
}

func (s *ReturnService) ListCustomerReturns(ctx context.Context, actor domain.Actor, customerID uuid.UUID) ([]*domain.ReturnRequest, error) {
	if err := s.policy.Evaluate(actor, policy.ReturnRead, policy.Scope{CustomerID: customerID}); err != nil {
		return nil, err
	}
	return s.returns.ListByCustomer(ctx, customerID)
}

func (s *ReturnService) notify(event messaging.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishWithRetry(event, publishRetries); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("event_type", string(event.EventType)), zap.Error(err))
	}
}
