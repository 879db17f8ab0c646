package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// orderTransitions is the full transition authority table: which roles may
// move an order from one status to the next. Ownership is checked
// separately by the access policy; this table only encodes adjacency and
// role. A customer can cancel only while the order is still pending.
var orderTransitions = map[OrderStatus]map[OrderStatus][]Role{
	OrderStatusPending: {
		OrderStatusConfirmed: {RoleShop, RoleAdmin},
		OrderStatusCancelled: {RoleCustomer, RoleShop, RoleAdmin},
	},
	OrderStatusConfirmed: {
		OrderStatusProcessing: {RoleShop, RoleAdmin},
		OrderStatusCancelled:  {RoleShop, RoleAdmin},
	},
	OrderStatusProcessing: {
		OrderStatusShipped:   {RoleShop, RoleAdmin},
		OrderStatusCancelled: {RoleShop, RoleAdmin},
	},
	OrderStatusShipped: {
		OrderStatusDelivered: {RoleShop, RoleAdmin},
	},
}

// CanTransitionTo reports whether next is adjacent to s for any role.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	_, ok := orderTransitions[s][next]
	return ok
}

type ShippingAddress struct {
	Recipient string `json:"recipient"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

type OrderItem struct {
	ID              uuid.UUID         `json:"id"`
	ProductID       uuid.UUID         `json:"product_id"`
	Name            string            `json:"name"`
	Thumbnail       string            `json:"thumbnail,omitempty"`
	UnitPrice       float64           `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// VariantKey is the canonical inventory identity of the selected options:
// the sorted "k=v" pairs joined with ";". Products without options map to
// the empty key.
func (i OrderItem) VariantKey() string {
	return VariantKeyFor(i.SelectedOptions)
}

func VariantKeyFor(options map[string]string) string {
	if len(options) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(options))
	for k, v := range options {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

// Order is created once and thereafter mutated only by status transitions.
// Items, address and total are immutable snapshots taken at creation time.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	ShopID          uuid.UUID       `json:"shop_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	TotalAmount     float64         `json:"total_amount"`
	History         StatusHistory   `json:"history"`
	CreatedAt       time.Time       `json:"created_at"`
	Version         int64           `json:"-"`
}

func NewOrder(customer Actor, shopID uuid.UUID, items []OrderItem, address ShippingAddress) *Order {
	var total float64
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		total += items[i].UnitPrice * float64(items[i].Quantity)
	}

	now := time.Now().UTC()
	return &Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(now),
		CustomerID:      customer.ID,
		ShopID:          shopID,
		Items:           items,
		ShippingAddress: address,
		TotalAmount:     total,
		History:         StatusHistory{}.Append(string(OrderStatusPending), customer, ""),
		CreatedAt:       now,
		Version:         1,
	}
}

// newOrderNumber builds a human-readable unique order number, e.g.
// SL-20260827-7F3A9C1B. Uniqueness is backed by the store's unique index.
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("SL-%s-%s", t.Format("20060102"), suffix)
}

func (o *Order) Status() OrderStatus {
	return OrderStatus(o.History.Current())
}

func (o *Order) Item(itemID uuid.UUID) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return OrderItem{}, false
}

// ApplyTransition appends a status change after checking adjacency and
// role authority. It never mutates the order on failure.
func (o *Order) ApplyTransition(actor Actor, next OrderStatus, note string) error {
	current := o.Status()
	if !next.Valid() || current.Terminal() || !current.CanTransitionTo(next) {
		return NewInvalidTransition(string(current), string(next))
	}

	allowed := false
	for _, role := range orderTransitions[current][next] {
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

	o.History = o.History.Append(string(next), actor, note)
	return nil
}

func (o *Order) OwnerCustomerID() uuid.UUID { return o.CustomerID }
func (o *Order) OwnerShopID() uuid.UUID     { return o.ShopID }

type CreateOrderRequest struct {
	ShopID          uuid.UUID              `json:"shop_id" validate:"required"`
	Items           []OrderItemRequest     `json:"items" validate:"required,min=1"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
}

type OrderItemRequest struct {
	ProductID       uuid.UUID         `json:"product_id" validate:"required"`
	Quantity        int               `json:"quantity" validate:"required,min=1"`
	SelectedOptions map[string]string `json:"selected_options"`
}

type ShippingAddressRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code" validate:"required"`
	Country   string `json:"country" validate:"required"`
	Phone     string `json:"phone"`
}

func (r CreateOrderRequest) Validate() error {
	if r.ShopID == uuid.Nil {
		return NewValidation("shop_id is required", nil)
	}
	if len(r.Items) == 0 {
		return NewValidation("at least one item is required", nil)
	}
	for i, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return NewValidation("invalid product id", map[string]interface{}{"item_index": i})
		}
		if item.Quantity <= 0 {
			return NewValidation("quantity must be positive", map[string]interface{}{
				"item_index": i,
				"quantity":   item.Quantity,
			})
		}
	}
	addr := r.ShippingAddress
	if addr.Recipient == "" || addr.Street == "" || addr.City == "" || addr.ZipCode == "" || addr.Country == "" {
		return NewValidation("incomplete shipping address", nil)
	}
	return nil
}

func (r CreateOrderRequest) ToShippingAddress() ShippingAddress {
	return ShippingAddress{
		Recipient: r.ShippingAddress.Recipient,
		Street:    r.ShippingAddress.Street,
		City:      r.ShippingAddress.City,
		State:     r.ShippingAddress.State,
		ZipCode:   r.ShippingAddress.ZipCode,
		Country:   r.ShippingAddress.Country,
		Phone:     r.ShippingAddress.Phone,
	}
}
