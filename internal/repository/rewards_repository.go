package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kuickmart/internal/database"
	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

// RewardsRepository stores point balances and the per-order credit log
type RewardsRepository interface {
	// GetAccount returns a zero balance for users who never earned points
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.RewardsAccount, error)
	// Credit records entry and adds its points to the owner's balance. A
	// second credit for the same order leaves the balance untouched and
	// reports applied=false.
	Credit(ctx context.Context, entry *domain.RewardEntry) (applied bool, err error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.RewardEntry, error)
}

type rewardsRepository struct {
	db *sql.DB
}

// NewRewardsRepository creates a new instance of RewardsRepository
func NewRewardsRepository(db *sql.DB) RewardsRepository {
	return &rewardsRepository{db: db}
}

func (r *rewardsRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.RewardsAccount, error) {
	account := &domain.RewardsAccount{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT points, updated_at FROM rewards_accounts WHERE user_id = $1`, userID,
	).Scan(&account.Points, &account.UpdatedAt)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load rewards account: %w", err)
	}
	return account, nil
}

func (r *rewardsRepository) Credit(ctx context.Context, entry *domain.RewardEntry) (bool, error) {
	applied := false
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// The order id primary key turns a replayed credit into a no-op
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reward_entries (order_id, user_id, amount, points, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (order_id) DO NOTHING
		`, entry.OrderID, entry.UserID, entry.Amount, entry.Points, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record reward entry: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rewards_accounts (user_id, points, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id)
			DO UPDATE SET points = rewards_accounts.points + EXCLUDED.points, updated_at = NOW()
		`, entry.UserID, entry.Points)
		if err != nil {
			if isForeignKeyViolation(err, "fk_rewards_accounts_user") {
				return fmt.Errorf("%w: %s", ErrUserNotFound, entry.UserID)
			}
			return fmt.Errorf("failed to update rewards balance: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *rewardsRepository) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.RewardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, user_id, amount, points, created_at
		FROM reward_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward entries: %w", err)
	}
	defer rows.Close()

	entries := []*domain.RewardEntry{}
	for rows.Next() {
		entry := &domain.RewardEntry{}
		if err := rows.Scan(&entry.OrderID, &entry.UserID, &entry.Amount, &entry.Points, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reward entries: %w", err)
	}
	return entries, nil
}
