package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

// In-memory implementations backing unit tests and local development.
// They honor the same atomicity contract as the Postgres ones: every
// mutation happens under the store mutex, and Update is version-checked.

type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryOrderRepository) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.NewNotFound("order", id.String())
	}
	return cloneOrder(order), nil
}

func (r *MemoryOrderRepository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return domain.NewNotFound("order", order.ID.String())
	}
	if stored.Version != order.Version {
		return ErrVersionConflict
	}
	updated := cloneOrder(order)
	updated.Version++
	r.orders[order.ID] = updated
	order.Version++
	return nil
}

func (r *MemoryOrderRepository) ListByShop(_ context.Context, shopID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.ShopID != shopID {
			continue
		}
		if status != nil && order.Status() != *status {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	sortOrders(out)
	return out, nil
}

func (r *MemoryOrderRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			out = append(out, cloneOrder(order))
		}
	}
	sortOrders(out)
	return out, nil
}

func sortOrders(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	for i, item := range o.Items {
		if item.SelectedOptions != nil {
			opts := make(map[string]string, len(item.SelectedOptions))
			for k, v := range item.SelectedOptions {
				opts[k] = v
			}
			c.Items[i].SelectedOptions = opts
		}
	}
	c.History = make(domain.StatusHistory, len(o.History))
	copy(c.History, o.History)
	return &c
}

type MemoryReturnRepository struct {
	mu         sync.RWMutex
	returns    map[uuid.UUID]*domain.ReturnRequest
	orderLocks sync.Map // orderID -> *sync.Mutex
}

func NewMemoryReturnRepository() *MemoryReturnRepository {
	return &MemoryReturnRepository{returns: make(map[uuid.UUID]*domain.ReturnRequest)}
}

func (r *MemoryReturnRepository) Create(_ context.Context, ret *domain.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returns[ret.ID] = cloneReturn(ret)
	return nil
}

func (r *MemoryReturnRepository) Get(_ context.Context, id uuid.UUID) (*domain.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret, ok := r.returns[id]
	if !ok {
		return nil, domain.NewNotFound("return", id.String())
	}
	return cloneReturn(ret), nil
}

func (r *MemoryReturnRepository) Update(_ context.Context, ret *domain.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.returns[ret.ID]
	if !ok {
		return domain.NewNotFound("return", ret.ID.String())
	}
	if stored.Version != ret.Version {
		return ErrVersionConflict
	}
	updated := cloneReturn(ret)
	updated.Version++
	r.returns[ret.ID] = updated
	ret.Version++
	return nil
}

func (r *MemoryReturnRepository) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*domain.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ReturnRequest
	for _, ret := range r.returns {
		if ret.OrderID == orderID {
			out = append(out, cloneReturn(ret))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryReturnRepository) ListByShop(_ context.Context, shopID uuid.UUID, status *domain.ReturnStatus) ([]*domain.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ReturnRequest
	for _, ret := range r.returns {
		if ret.ShopID != shopID {
			continue
		}
		if status != nil && ret.Status() != *status {
			continue
		}
		out = append(out, cloneReturn(ret))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryReturnRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ReturnRequest
	for _, ret := range r.returns {
		if ret.CustomerID == customerID {
			out = append(out, cloneReturn(ret))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryReturnRepository) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	lock, _ := r.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

func cloneReturn(ret *domain.ReturnRequest) *domain.ReturnRequest {
	c := *ret
	c.Items = make([]domain.ReturnItem, len(ret.Items))
	copy(c.Items, ret.Items)
	c.History = make(domain.StatusHistory, len(ret.History))
	copy(c.History, ret.History)
	return &c
}

// MemoryInventory bundles the ledger, the reservation log and the product
// catalog behind one mutex, mirroring what the guarded SQL statements
// provide per row.
type MemoryInventory struct {
	mu           sync.RWMutex
	records      map[domain.VariantRef]*domain.InventoryRecord
	reservations map[uuid.UUID]*domain.StockReservation
	products     map[uuid.UUID]*domain.Product
}

func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		records:      make(map[domain.VariantRef]*domain.InventoryRecord),
		reservations: make(map[uuid.UUID]*domain.StockReservation),
		products:     make(map[uuid.UUID]*domain.Product),
	}
}

// SeedProduct registers a catalog row and its inventory record.
func (r *MemoryInventory) SeedProduct(product domain.Product, variantKey string, available int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := product
	r.products[p.ID] = &p
	ref := domain.VariantRef{ProductID: p.ID, VariantKey: variantKey}
	r.records[ref] = &domain.InventoryRecord{
		ProductID:  p.ID,
		VariantKey: variantKey,
		Available:  available,
		Version:    1,
	}
}

func (r *MemoryInventory) Reserve(_ context.Context, ref domain.VariantRef, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[ref]
	if !ok {
		return domain.NewNotFound("inventory record", ref.ProductID.String())
	}
	if err := record.Reserve(qty); err != nil {
		return err
	}
	record.Version++
	return nil
}

func (r *MemoryInventory) Release(_ context.Context, ref domain.VariantRef, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[ref]
	if !ok {
		return domain.NewNotFound("inventory record", ref.ProductID.String())
	}
	record.Release(qty)
	record.Version++
	return nil
}

func (r *MemoryInventory) Restock(_ context.Context, ref domain.VariantRef, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[ref]
	if !ok {
		record = &domain.InventoryRecord{ProductID: ref.ProductID, VariantKey: ref.VariantKey}
		r.records[ref] = record
	}
	record.Restock(qty)
	record.Version++
	return nil
}

func (r *MemoryInventory) GetRecord(_ context.Context, ref domain.VariantRef) (*domain.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[ref]
	if !ok {
		return nil, domain.NewNotFound("inventory record", ref.ProductID.String())
	}
	c := *record
	return &c, nil
}

func (r *MemoryInventory) Create(_ context.Context, res *domain.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *res
	r.reservations[res.ID] = &c
	return nil
}

func (r *MemoryInventory) BindToOrder(_ context.Context, ids []uuid.UUID, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if res, ok := r.reservations[id]; ok && res.Status == domain.ReservationHeld {
			res.OrderID = orderID
			res.Status = domain.ReservationCommitted
			res.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (r *MemoryInventory) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*domain.StockReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.StockReservation
	for _, res := range r.reservations {
		if res.OrderID == orderID {
			c := *res
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryInventory) MarkReleased(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.reservations[id]; ok {
		res.Status = domain.ReservationReleased
		res.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryInventory) ListAbandoned(_ context.Context, before time.Time) ([]*domain.StockReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.StockReservation
	for _, res := range r.reservations {
		if res.Status == domain.ReservationHeld && res.CreatedAt.Before(before) {
			c := *res
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryInventory) GetProduct(_ context.Context, productID uuid.UUID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[productID]
	if !ok {
		return nil, domain.NewNotFound("product", productID.String())
	}
	c := *product
	return &c, nil
}
