package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

type PostgresReturnRepository struct {
	db *sql.DB
}

func NewPostgresReturnRepository(db *sql.DB) *PostgresReturnRepository {
	return &PostgresReturnRepository{db: db}
}

func (r *PostgresReturnRepository) Create(ctx context.Context, ret *domain.ReturnRequest) error {
	itemsJSON, err := json.Marshal(ret.Items)
	if err != nil {
		return fmt.Errorf("items serialization error: %w", err)
	}
	historyJSON, err := json.Marshal(ret.History)
	if err != nil {
		return fmt.Errorf("history serialization error: %w", err)
	}

	query := `
		INSERT INTO returns (
			id, order_id, customer_id, shop_id, items, reason, detail,
			refund_amount, status, status_history, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		ret.ID,
		ret.OrderID,
		ret.CustomerID,
		ret.ShopID,
		itemsJSON,
		string(ret.Reason),
		ret.Detail,
		ret.RefundAmount,
		string(ret.Status()),
		historyJSON,
		ret.CreatedAt,
		ret.Version,
	)
	if err != nil {
		return fmt.Errorf("return creation error: %w", err)
	}
	return nil
}

func (r *PostgresReturnRepository) Update(ctx context.Context, ret *domain.ReturnRequest) error {
	historyJSON, err := json.Marshal(ret.History)
	if err != nil {
		return fmt.Errorf("history serialization error: %w", err)
	}

	query := `
		UPDATE returns
		SET status = $3, status_history = $4, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		ret.ID,
		ret.Version,
		string(ret.Status()),
		historyJSON,
	)
	if err != nil {
		return fmt.Errorf("return update error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	ret.Version++
	return nil
}

const returnColumns = `
	id, order_id, customer_id, shop_id, items, reason, detail,
	refund_amount, status_history, created_at, version
`

func (r *PostgresReturnRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ReturnRequest, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`

	ret, err := scanReturn(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("return", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("return retrieval error: %w", err)
	}
	return ret, nil
}

func (r *PostgresReturnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.ReturnRequest, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE order_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, orderID)
}

func (r *PostgresReturnRepository) ListByShop(ctx context.Context, shopID uuid.UUID, status *domain.ReturnStatus) ([]*domain.ReturnRequest, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE shop_id = $1`
	args := []interface{}{shopID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

func (r *PostgresReturnRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.ReturnRequest, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, customerID)
}

// WithOrderLock holds a transaction-scoped advisory lock keyed by the
// order id while fn runs, so concurrent claim checks on the same order
// serialize. Writes made by fn commit before the lock is released.
func (r *PostgresReturnRepository) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("order lock begin error: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, orderID); err != nil {
		return fmt.Errorf("order lock error: %w", err)
	}

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresReturnRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.ReturnRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("returns retrieval error: %w", err)
	}
	defer rows.Close()

	var returns []*domain.ReturnRequest
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("return scan error: %w", err)
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

func scanReturn(row rowScanner) (*domain.ReturnRequest, error) {
	ret := &domain.ReturnRequest{}
	var itemsJSON, historyJSON []byte
	var reason string

	err := row.Scan(
		&ret.ID,
		&ret.OrderID,
		&ret.CustomerID,
		&ret.ShopID,
		&itemsJSON,
		&reason,
		&ret.Detail,
		&ret.RefundAmount,
		&historyJSON,
		&ret.CreatedAt,
		&ret.Version,
	)
	if err != nil {
		return nil, err
	}
	ret.Reason = domain.ReturnReason(reason)

	if err := json.Unmarshal(itemsJSON, &ret.Items); err != nil {
		return nil, fmt.Errorf("items deserialization error: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &ret.History); err != nil {
		return nil, fmt.Errorf("history deserialization error: %w", err)
	}
	return ret, nil
}
