package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderNumber     string                  `json:"order_number"`
	CustomerID      uuid.UUID               `json:"customer_id"`
	ShopID          uuid.UUID               `json:"shop_id"`
	Items           []OrderItemResponse     `json:"items"`
	ShippingAddress ShippingAddressResponse `json:"shipping_address"`
	TotalAmount     float64                 `json:"total_amount"`
	Status          string                  `json:"status"`
	History         []StatusChangeResponse  `json:"history"`
	CreatedAt       time.Time               `json:"created_at"`
}

type OrderItemResponse struct {
	ID              uuid.UUID         `json:"id"`
	ProductID       uuid.UUID         `json:"product_id"`
	Name            string            `json:"name"`
	Thumbnail       string            `json:"thumbnail,omitempty"`
	UnitPrice       float64           `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

type ShippingAddressResponse struct {
	Recipient string `json:"recipient"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

type StatusChangeResponse struct {
	Status    string    `json:"status"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

type ReturnResponse struct {
	ID           uuid.UUID              `json:"id"`
	OrderID      uuid.UUID              `json:"order_id"`
	CustomerID   uuid.UUID              `json:"customer_id"`
	ShopID       uuid.UUID              `json:"shop_id"`
	Items        []ReturnItemResponse   `json:"items"`
	Reason       string                 `json:"reason"`
	Detail       string                 `json:"detail,omitempty"`
	RefundAmount float64                `json:"refund_amount"`
	Status       string                 `json:"status"`
	History      []StatusChangeResponse `json:"history"`
	CreatedAt    time.Time              `json:"created_at"`
}

type ReturnItemResponse struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// UpdateReturnStatusRequest is the return moderation payload. adminNotes
// is the field name the storefront client has always sent; note is
// accepted as an alias for consistency with the orders endpoint.
type UpdateReturnStatusRequest struct {
	Status     string `json:"status" validate:"required"`
	AdminNotes string `json:"adminNotes"`
	Note       string `json:"note"`
}

func (r UpdateReturnStatusRequest) StatusNote() string {
	if r.AdminNotes != "" {
		return r.AdminNotes
	}
	return r.Note
}

func mapOrder(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Name:            item.Name,
			Thumbnail:       item.Thumbnail,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
			SelectedOptions: item.SelectedOptions,
		}
	}

	return OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		ShopID:      order.ShopID,
		Items:       items,
		ShippingAddress: ShippingAddressResponse{
			Recipient: order.ShippingAddress.Recipient,
			Street:    order.ShippingAddress.Street,
			City:      order.ShippingAddress.City,
			State:     order.ShippingAddress.State,
			ZipCode:   order.ShippingAddress.ZipCode,
			Country:   order.ShippingAddress.Country,
			Phone:     order.ShippingAddress.Phone,
		},
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status()),
		History:     mapHistory(order.History),
		CreatedAt:   order.CreatedAt,
	}
}

func mapOrders(orders []*domain.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrder(order)
	}
	return responses
}

func mapReturn(ret *domain.ReturnRequest) ReturnResponse {
	items := make([]ReturnItemResponse, len(ret.Items))
	for i, item := range ret.Items {
		items[i] = ReturnItemResponse{
			OrderItemID: item.OrderItemID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	return ReturnResponse{
		ID:           ret.ID,
		OrderID:      ret.OrderID,
		CustomerID:   ret.CustomerID,
		ShopID:       ret.ShopID,
		Items:        items,
		Reason:       string(ret.Reason),
		Detail:       ret.Detail,
		RefundAmount: ret.RefundAmount,
		Status:       string(ret.Status()),
		History:      mapHistory(ret.History),
		CreatedAt:    ret.CreatedAt,
	}
}

func mapReturns(returns []*domain.ReturnRequest) []ReturnResponse {
	responses := make([]ReturnResponse, len(returns))
	for i, ret := range returns {
		responses[i] = mapReturn(ret)
	}
	return responses
}

func mapHistory(history domain.StatusHistory) []StatusChangeResponse {
	out := make([]StatusChangeResponse, len(history))
	for i, change := range history {
		out[i] = StatusChangeResponse{
			Status:    change.Status,
			ActorID:   change.ActorID,
			ActorRole: string(change.ActorRole),
			Note:      change.Note,
			At:        change.At,
		}
	}
	return out
}
