package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stylelane/orders-service/internal/domain"
)

// PostgresInventory implements InventoryLedger, ReservationRepository and
// ProductCatalog over one connection pool. Every stock mutation is a
// single guarded UPDATE, so concurrent calls serialize at the row.
type PostgresInventory struct {
	db *sql.DB
}

func NewPostgresInventory(db *sql.DB) *PostgresInventory {
	return &PostgresInventory{db: db}
}

func (r *PostgresInventory) Reserve(ctx context.Context, ref domain.VariantRef, qty int) error {
	query := `
		UPDATE inventory_records
		SET available = available - $3, reserved = reserved + $3, version = version + 1
		WHERE product_id = $1 AND variant_key = $2 AND available >= $3
	`

	result, err := r.db.ExecContext(ctx, query, ref.ProductID, ref.VariantKey, qty)
	if err != nil {
		return fmt.Errorf("reserve error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Guard failed: either the row is missing or stock is short.
		if _, err := r.GetRecord(ctx, ref); err != nil {
			return err
		}
		return domain.NewInsufficientStock(ref.ProductID, ref.VariantKey, qty)
	}
	return nil
}

func (r *PostgresInventory) Release(ctx context.Context, ref domain.VariantRef, qty int) error {
	// LEAST guards against releasing more than is actually reserved.
	query := `
		UPDATE inventory_records
		SET available = available + LEAST(reserved, $3),
		    reserved = reserved - LEAST(reserved, $3),
		    version = version + 1
		WHERE product_id = $1 AND variant_key = $2
	`

	result, err := r.db.ExecContext(ctx, query, ref.ProductID, ref.VariantKey, qty)
	if err != nil {
		return fmt.Errorf("release error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.NewNotFound("inventory record", ref.ProductID.String())
	}
	return nil
}

func (r *PostgresInventory) Restock(ctx context.Context, ref domain.VariantRef, qty int) error {
	// The variant may have been delisted since the sale; restock still
	// lands, creating the row if needed.
	query := `
		INSERT INTO inventory_records (product_id, variant_key, available, reserved, version)
		VALUES ($1, $2, $3, 0, 1)
		ON CONFLICT (product_id, variant_key)
		DO UPDATE SET available = inventory_records.available + $3,
		              version = inventory_records.version + 1
	`

	if _, err := r.db.ExecContext(ctx, query, ref.ProductID, ref.VariantKey, qty); err != nil {
		return fmt.Errorf("restock error: %w", err)
	}
	return nil
}

func (r *PostgresInventory) GetRecord(ctx context.Context, ref domain.VariantRef) (*domain.InventoryRecord, error) {
	query := `
		SELECT product_id, variant_key, available, reserved, version
		FROM inventory_records
		WHERE product_id = $1 AND variant_key = $2
	`

	record := &domain.InventoryRecord{}
	err := r.db.QueryRowContext(ctx, query, ref.ProductID, ref.VariantKey).Scan(
		&record.ProductID,
		&record.VariantKey,
		&record.Available,
		&record.Reserved,
		&record.Version,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("inventory record", ref.ProductID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("inventory retrieval error: %w", err)
	}
	return record, nil
}

func (r *PostgresInventory) Create(ctx context.Context, res *domain.StockReservation) error {
	query := `
		INSERT INTO stock_reservations (
			id, order_id, product_id, variant_key, quantity, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var orderID interface{}
	if res.OrderID != uuid.Nil {
		orderID = res.OrderID
	}

	_, err := r.db.ExecContext(ctx, query,
		res.ID,
		orderID,
		res.ProductID,
		res.VariantKey,
		res.Quantity,
		string(res.Status),
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reservation creation error: %w", err)
	}
	return nil
}

func (r *PostgresInventory) BindToOrder(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error {
	query := `
		UPDATE stock_reservations
		SET order_id = $2, status = $3, updated_at = NOW()
		WHERE id = ANY($1) AND status = $4
	`

	_, err := r.db.ExecContext(ctx, query,
		uuidArray(ids), orderID,
		string(domain.ReservationCommitted), string(domain.ReservationHeld),
	)
	if err != nil {
		return fmt.Errorf("reservation bind error: %w", err)
	}
	return nil
}

func (r *PostgresInventory) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.StockReservation, error) {
	query := reservationSelect + ` WHERE order_id = $1`
	return r.listReservations(ctx, query, orderID)
}

func (r *PostgresInventory) MarkReleased(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE stock_reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, string(domain.ReservationReleased))
	if err != nil {
		return fmt.Errorf("reservation release error: %w", err)
	}
	return nil
}

func (r *PostgresInventory) ListAbandoned(ctx context.Context, before time.Time) ([]*domain.StockReservation, error) {
	query := reservationSelect + ` WHERE status = $1 AND created_at < $2`
	return r.listReservations(ctx, query, string(domain.ReservationHeld), before)
}

const reservationSelect = `
	SELECT id, order_id, product_id, variant_key, quantity, status,
	       created_at, updated_at
	FROM stock_reservations
`

func (r *PostgresInventory) listReservations(ctx context.Context, query string, args ...interface{}) ([]*domain.StockReservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reservations retrieval error: %w", err)
	}
	defer rows.Close()

	var reservations []*domain.StockReservation
	for rows.Next() {
		res := &domain.StockReservation{}
		var orderID sql.NullString
		var status string

		err := rows.Scan(
			&res.ID,
			&orderID,
			&res.ProductID,
			&res.VariantKey,
			&res.Quantity,
			&status,
			&res.CreatedAt,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reservation scan error: %w", err)
		}
		res.Status = domain.ReservationStatus(status)
		if orderID.Valid {
			if parsed, err := uuid.Parse(orderID.String); err == nil {
				res.OrderID = parsed
			}
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *PostgresInventory) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, shop_id, name, thumbnail, price, purchasable
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.ShopID,
		&product.Name,
		&product.Thumbnail,
		&product.Price,
		&product.Purchasable,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("product", productID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("product retrieval error: %w", err)
	}
	return product, nil
}

// uuidArray adapts ids for ANY($1) binding.
func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}
