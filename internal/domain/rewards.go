package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardsAccount is the points balance of one user
type RewardsAccount struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Points    int64     `json:"points" db:"points"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RewardEntry records the credit granted for one order; OrderID is its dedup key
type RewardEntry struct {
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Points    int64           `json:"points" db:"points"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PointsFor converts an order amount into points, rounding down
func PointsFor(amount, pointsPerUnit decimal.Decimal) int64 {
	if amount.IsNegative() || pointsPerUnit.IsNegative() {
		return 0
	}
	return amount.Mul(pointsPerUnit).Floor().IntPart()
}
