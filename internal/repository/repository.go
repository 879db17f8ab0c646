// Package repository defines the persistence boundary of the engines and
// provides a Postgres implementation plus an in-memory one used by tests
// and local development.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

// ErrVersionConflict is returned by the optimistic-CAS Update methods
// when another writer advanced the aggregate first. Engines re-read and
// re-validate on conflict.
var ErrVersionConflict = errors.New("aggregate version conflict")

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// Update persists new history entries with compare-and-swap on the
	// stored version; ErrVersionConflict when the version moved.
	Update(ctx context.Context, order *domain.Order) error
	ListByShop(ctx context.Context, shopID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
}

type ReturnRepository interface {
	Create(ctx context.Context, ret *domain.ReturnRequest) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ReturnRequest, error)
	Update(ctx context.Context, ret *domain.ReturnRequest) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.ReturnRequest, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status *domain.ReturnStatus) ([]*domain.ReturnRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.ReturnRequest, error)
	// WithOrderLock serializes fn against other claim sections on the
	// same order, so the claimed-quantity check and the insert are one
	// critical section.
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

// InventoryLedger exposes the three atomic stock mutations. Each call is
// a single atomic read-modify-write on one inventory row.
type InventoryLedger interface {
	// Reserve moves qty from available to reserved; fails with an
	// insufficient-stock error without partial effect.
	Reserve(ctx context.Context, ref domain.VariantRef, qty int) error
	// Release moves qty from reserved back to available.
	Release(ctx context.Context, ref domain.VariantRef, qty int) error
	// Restock adds qty to available unconditionally.
	Restock(ctx context.Context, ref domain.VariantRef, qty int) error
	GetRecord(ctx context.Context, ref domain.VariantRef) (*domain.InventoryRecord, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, res *domain.StockReservation) error
	// BindToOrder marks held reservations as committed to the order.
	BindToOrder(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.StockReservation, error)
	MarkReleased(ctx context.Context, id uuid.UUID) error
	// ListAbandoned returns held (never committed) reservations created
	// before the cutoff; the sweeper releases them.
	ListAbandoned(ctx context.Context, before time.Time) ([]*domain.StockReservation, error)
}

// ProductCatalog is the read-only view of the catalog the order engine
// snapshots line items from.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
}
