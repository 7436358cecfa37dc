package repository

import (
	"context"
	"database/sql"
	"fmt"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

// CartRepository persists each user's cart lines keyed by (user_id, product_id)
type CartRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// Upsert writes a line, replacing any existing line for the same product
	Upsert(ctx context.Context, userID uuid.UUID, item domain.CartItem) error
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT product_id, quantity, snapshot_price, color, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.SnapshotPrice, &item.Color, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return domain.NewCart(userID, items...), nil
}

// Upsert is idempotent: repeating the same write leaves the same row
func (r *cartRepository) Upsert(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, snapshot_price, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity,
		              snapshot_price = EXCLUDED.snapshot_price,
		              color = EXCLUDED.color
	`

	_, err := r.db.ExecContext(ctx, query, userID, item.ProductID, item.Quantity, item.SnapshotPrice, item.Color)
	if err != nil {
		if isForeignKeyViolation(err, "fk_cart_items_product") {
			return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if isForeignKeyViolation(err, "fk_cart_items_user") {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

// Delete removes a line; deleting an absent line is not an error
func (r *cartRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
