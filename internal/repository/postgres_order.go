package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("items serialization error: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("shipping address serialization error: %w", err)
	}
	historyJSON, err := json.Marshal(order.History)
	if err != nil {
		return fmt.Errorf("history serialization error: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, customer_id, shop_id, items, shipping_address,
			total_amount, status, status_history, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.ShopID,
		itemsJSON,
		addressJSON,
		order.TotalAmount,
		string(order.Status()),
		historyJSON,
		order.CreatedAt,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("order creation error: %w", err)
	}
	return nil
}

// Update rewrites status and history with compare-and-swap on version.
// Items, address and total are immutable after creation and are not
// touched here.
func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	historyJSON, err := json.Marshal(order.History)
	if err != nil {
		return fmt.Errorf("history serialization error: %w", err)
	}

	query := `
		UPDATE orders
		SET status = $3, status_history = $4, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Version,
		string(order.Status()),
		historyJSON,
	)
	if err != nil {
		return fmt.Errorf("order update error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	order.Version++
	return nil
}

const orderColumns = `
	id, order_number, customer_id, shop_id, items, shipping_address,
	total_amount, status_history, created_at, version
`

func (r *PostgresOrderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("order", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("order retrieval error: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) ListByShop(ctx context.Context, shopID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE shop_id = $1`
	args := []interface{}{shopID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *PostgresOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, customerID)
}

func (r *PostgresOrderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders retrieval error: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order scan error: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var itemsJSON, addressJSON, historyJSON []byte

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.ShopID,
		&itemsJSON,
		&addressJSON,
		&order.TotalAmount,
		&historyJSON,
		&order.CreatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("items deserialization error: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("shipping address deserialization error: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &order.History); err != nil {
		return nil, fmt.Errorf("history deserialization error: %w", err)
	}
	return order, nil
}
