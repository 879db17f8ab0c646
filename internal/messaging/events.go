package messaging

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	OrderCreatedEvent        EventType = "order.created"
	OrderStatusChangedEvent  EventType = "order.status_changed"
	OrderCancelledEvent      EventType = "order.cancelled"
	ReturnCreatedEvent       EventType = "return.created"
	ReturnStatusChangedEvent EventType = "return.status_changed"
)

// NotificationEvent is the envelope handed to the notification
// dispatcher. Published strictly after the state mutation commits and
// never gating it.
type NotificationEvent struct {
	ID            uuid.UUID   `json:"id"`
	EventType     EventType   `json:"event_type"`
	OrderID       uuid.UUID   `json:"order_id,omitempty"`
	ReturnID      uuid.UUID   `json:"return_id,omitempty"`
	ShopID        uuid.UUID   `json:"shop_id,omitempty"`
	CustomerID    uuid.UUID   `json:"customer_id,omitempty"`
	Payload       interface{} `json:"payload,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Service       string      `json:"service"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
}

type StatusChangedPayload struct {
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ActorRole      string `json:"actor_role"`
	Note           string `json:"note,omitempty"`
}

type OrderCreatedPayload struct {
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

type ReturnCreatedPayload struct {
	RefundAmount float64 `json:"refund_amount"`
	Reason       string  `json:"reason"`
}
