package domain

import (
	"time"

	"github.com/google/uuid"
)

// VariantRef identifies one inventory row: a product plus its canonical
// variant key (see VariantKeyFor).
type VariantRef struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantKey string    `json:"variant_key"`
}

// InventoryRecord tracks stock for one product variant. Available never
// goes negative; reserved holds stock claimed by in-flight or confirmed
// orders that has not been released or sold through.
type InventoryRecord struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantKey string    `json:"variant_key"`
	Available  int       `json:"available"`
	Reserved   int       `json:"reserved"`
	Version    int64     `json:"-"`
}

func (r *InventoryRecord) Ref() VariantRef {
	return VariantRef{ProductID: r.ProductID, VariantKey: r.VariantKey}
}

func (r *InventoryRecord) CanReserve(qty int) bool {
	return r.Available >= qty
}

func (r *InventoryRecord) Reserve(qty int) error {
	if !r.CanReserve(qty) {
		return NewInsufficientStock(r.ProductID, r.VariantKey, qty)
	}
	r.Available -= qty
	r.Reserved += qty
	return nil
}

// Release returns reserved quantity to the available pool. Used when an
// order is cancelled or a reservation is abandoned.
func (r *InventoryRecord) Release(qty int) {
	if qty > r.Reserved {
		qty = r.Reserved
	}
	r.Reserved -= qty
	r.Available += qty
}

// Restock adds sold quantity back to available without touching reserved.
// The reservation that produced the sale may be long gone, so this is an
// unconditional increment.
func (r *InventoryRecord) Restock(qty int) {
	r.Available += qty
}

type ReservationStatus string

const (
	// ReservationHeld: stock decremented, order not yet persisted. Held
	// reservations past the grace window are released by the sweeper.
	ReservationHeld ReservationStatus = "held"
	// ReservationCommitted: bound to a persisted order; released only if
	// that order is cancelled.
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// StockReservation records one hold placed against inventory during order
// creation, so cancellation and the reconciliation sweep know exactly
// what to give back.
type StockReservation struct {
	ID         uuid.UUID         `json:"id"`
	OrderID    uuid.UUID         `json:"order_id"` // Nil until committed
	ProductID  uuid.UUID         `json:"product_id"`
	VariantKey string            `json:"variant_key"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func NewStockReservation(ref VariantRef, qty int) *StockReservation {
	now := time.Now().UTC()
	return &StockReservation{
		ID:         uuid.New(),
		ProductID:  ref.ProductID,
		VariantKey: ref.VariantKey,
		Quantity:   qty,
		Status:     ReservationHeld,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *StockReservation) Ref() VariantRef {
	return VariantRef{ProductID: r.ProductID, VariantKey: r.VariantKey}
}
