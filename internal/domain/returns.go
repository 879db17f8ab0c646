package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCompleted ReturnStatus = "completed"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCompleted:
		return true
	}
	return false
}

func (s ReturnStatus) Terminal() bool {
	return s == ReturnStatusCompleted || s == ReturnStatusRejected
}

// Only the owning shop or an admin moves a return; approval cannot be
// reversed, only completed.
var returnTransitions = map[ReturnStatus]map[ReturnStatus][]Role{
	ReturnStatusPending: {
		ReturnStatusApproved: {RoleShop, RoleAdmin},
		ReturnStatusRejected: {RoleShop, RoleAdmin},
	},
	ReturnStatusApproved: {
		ReturnStatusCompleted: {RoleShop, RoleAdmin},
	},
}

func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	_, ok := returnTransitions[s][next]
	return ok
}

type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "defective"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonOther          ReturnReason = "other"
)

func (r ReturnReason) Valid() bool {
	switch r {
	case ReturnReasonDefective, ReturnReasonWrongItem, ReturnReasonNotAsDescribed,
		ReturnReasonChangedMind, ReturnReasonOther:
		return true
	}
	return false
}

// ReturnItem is a claim against one ordered line item. Product identity
// and unit price are copied from the order item so the refund never
// follows later price changes.
type ReturnItem struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	VariantKey  string    `json:"variant_key,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

type ReturnRequest struct {
	ID           uuid.UUID     `json:"id"`
	OrderID      uuid.UUID     `json:"order_id"`
	CustomerID   uuid.UUID     `json:"customer_id"`
	ShopID       uuid.UUID     `json:"shop_id"`
	Items        []ReturnItem  `json:"items"`
	Reason       ReturnReason  `json:"reason"`
	Detail       string        `json:"detail,omitempty"`
	RefundAmount float64       `json:"refund_amount"`
	History      StatusHistory `json:"history"`
	CreatedAt    time.Time     `json:"created_at"`
	Version      int64         `json:"-"`
}

func NewReturnRequest(customer Actor, order *Order, items []ReturnItem, reason ReturnReason, detail string) *ReturnRequest {
	var refund float64
	for _, item := range items {
		refund += item.UnitPrice * float64(item.Quantity)
	}

	return &ReturnRequest{
		ID:           uuid.New(),
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		ShopID:       order.ShopID,
		Items:        items,
		Reason:       reason,
		Detail:       detail,
		RefundAmount: refund,
		History:      StatusHistory{}.Append(string(ReturnStatusPending), customer, ""),
		CreatedAt:    time.Now().UTC(),
		Version:      1,
	}
}

func (r *ReturnRequest) Status() ReturnStatus {
	return ReturnStatus(r.History.Current())
}

func (r *ReturnRequest) ApplyTransition(actor Actor, next ReturnStatus, note string) error {
	current := r.Status()
	if !next.Valid() || current.Terminal() || !current.CanTransitionTo(next) {
		return NewInvalidTransition(string(current), string(next))
	}

	allowed := false
	for _, role := range returnTransitions[current][next] {
		if actor.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return NewForbidden("role may not perform this transition", map[string]interface{}{
			"role":             string(actor.Role),
			"current_status":   string(current),
			"requested_status": string(next),
		})
	}

	r.History = r.History.Append(string(next), actor, note)
	return nil
}

func (r *ReturnRequest) OwnerCustomerID() uuid.UUID { return r.CustomerID }
func (r *ReturnRequest) OwnerShopID() uuid.UUID     { return r.ShopID }

// ClaimedQuantities sums, per order item, the quantities claimed by all
// non-rejected returns. Rejected returns free their quantity for a new
// claim; pending, approved and completed ones hold it.
func ClaimedQuantities(returns []*ReturnRequest) map[uuid.UUID]int {
	claimed := make(map[uuid.UUID]int)
	for _, ret := range returns {
		if ret.Status() == ReturnStatusRejected {
			continue
		}
		for _, item := range ret.Items {
			claimed[item.OrderItemID] += item.Quantity
		}
	}
	return claimed
}

type CreateReturnRequest struct {
	OrderID uuid.UUID           `json:"order_id" validate:"required"`
	Items   []ReturnItemRequest `json:"items" validate:"required,min=1"`
	Reason  ReturnReason        `json:"reason" validate:"required"`
	Detail  string              `json:"detail"`
}

type ReturnItemRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

func (r CreateReturnRequest) Validate() error {
	if r.OrderID == uuid.Nil {
		return NewValidation("order_id is required", nil)
	}
	if len(r.Items) == 0 {
		return NewValidation("at least one item is required", nil)
	}
	seen := make(map[uuid.UUID]bool, len(r.Items))
	for i, item := range r.Items {
		if item.OrderItemID == uuid.Nil {
			return NewValidation("invalid order item id", map[string]interface{}{"item_index": i})
		}
		if item.Quantity <= 0 {
			return NewValidation("quantity must be positive", map[string]interface{}{
				"item_index": i,
				"quantity":   item.Quantity,
			})
		}
		if seen[item.OrderItemID] {
			return NewValidation("duplicate order item in claim", map[string]interface{}{
				"order_item_id": item.OrderItemID.String(),
			})
		}
		seen[item.OrderItemID] = true
	}
	if !r.Reason.Valid() {
		return NewValidation("unknown return reason", map[string]interface{}{
			"reason": string(r.Reason),
		})
	}
	return nil
}
