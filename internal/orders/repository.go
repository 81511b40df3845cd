package orders

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/polina-mishina/bookstore/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, order.UserID, order.Status, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return err
	}

	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.BookID, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, book_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID int64
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.BookID, &item.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// ReplaceItems swaps the order's child rows wholesale; items are never merged
// or partially updated.
func (r *OrderRepository) ReplaceItems(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM order_items
		WHERE order_id = $1
	`, order.ID); err != nil {
		return err
	}

	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.Get(ctx, id)
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	// order_items cascades on the foreign key
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1
	`, id)
	return err
}

func insertItems(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	for i := range order.Items {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, book_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id
		`, order.ID, order.Items[i].BookID, order.Items[i].Quantity).Scan(&order.Items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}
