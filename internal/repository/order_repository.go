package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kuickmart/internal/database"
	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
	// ErrCartChanged means the cart lines an order was priced from were
	// already consumed or edited by the time the order was written
	ErrCartChanged = fmt.Errorf("cart changed during checkout: %w", domain.ErrConflict)
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create consumes the purchased cart lines and inserts the order in one
	// transaction. Unless every order line removes a cart line with the same
	// quantity, nothing is written and ErrCartChanged is returned, so a cart
	// becomes at most one order.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, int, error)
	// MarkPaid sets is_paid once; changed is false when it was already set
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (changed bool, err error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (changed bool, err error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := consumeCartLines(ctx, tx, order); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, total_amount, is_paid, is_delivered, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, order.UserID, order.TotalAmount, order.IsPaid, order.IsDelivered, order.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err, "fk_orders_user") {
				return fmt.Errorf("%w: %s", ErrUserNotFound, order.UserID)
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, line_no, product_id, quantity, price_at_order)
				VALUES ($1, $2, $3, $4, $5)
			`, order.ID, i+1, item.ProductID, item.Quantity, item.PriceAtOrder)
			if err != nil {
				return fmt.Errorf("failed to insert order item %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// consumeCartLines deletes the ordered lines from the owner's cart. A second
// checkout of the same cart blocks on the row locks of the first and then
// finds nothing left to delete.
func consumeCartLines(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	want := make(map[uuid.UUID]int, len(order.Items))
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		want[item.ProductID] = item.Quantity
		ids = append(ids, item.ProductID)
	}

	rows, err := tx.QueryContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2::uuid[]) RETURNING product_id, quantity`,
		order.UserID, uuidStrings(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to consume cart lines: %w", err)
	}
	removed, err := collectRows(rows, func(row rowScanner) (domain.CartItem, error) {
		var line domain.CartItem
		return line, row.Scan(&line.ProductID, &line.Quantity)
	})
	if err != nil {
		return fmt.Errorf("failed to read consumed cart lines: %w", err)
	}

	if len(removed) != len(want) {
		return ErrCartChanged
	}
	for _, line := range removed {
		if want[line.ProductID] != line.Quantity {
			return ErrCartChanged
		}
	}
	return nil
}

const orderColumns = `id, user_id, total_amount, is_paid, is_delivered, paid_at, delivered_at, created_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var paidAt, deliveredAt sql.NullTime
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.IsPaid,
		&order.IsDelivered,
		&paidAt,
		&deliveredAt,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrOrderNotFound
	case err != nil:
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders)
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, r.attachItems(ctx, orders)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.setFlag(ctx, `UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1 AND is_paid = FALSE`, id, at)
}

func (r *orderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.setFlag(ctx, `UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE id = $1 AND is_delivered = FALSE`, id, at)
}

func (r *orderRepository) setFlag(ctx context.Context, query string, id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("update status of order %s: %w", id, err)
	}
	if changed, err := result.RowsAffected(); err != nil || changed == 1 {
		return changed == 1, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := collectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

// attachItems loads the lines of all given orders with a single query
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price_at_order
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, line_no
	`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.PriceAtOrder); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return rows.Err()
}
