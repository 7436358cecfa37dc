package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is an immutable snapshot of one purchased line
type OrderItem struct {
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity     int             `json:"quantity" db:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order" db:"price_at_order"`
}

// Subtotal returns quantity x price at order time
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtOrder.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is created only by the checkout workflow. Once persisted only the
// fulfillment flags (IsPaid, IsDelivered) and their timestamps change.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	IsPaid      bool            `json:"is_paid" db:"is_paid"`
	IsDelivered bool            `json:"is_delivered" db:"is_delivered"`
	PaidAt      *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ComputeTotal sums the line subtotals
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CheckoutState is the state of one checkout attempt
type CheckoutState string

const (
	CheckoutDraft      CheckoutState = "draft"
	CheckoutValidating CheckoutState = "validating"
	CheckoutCommitted  CheckoutState = "committed"
	CheckoutRejected   CheckoutState = "rejected"
)

// CheckoutResult is returned for a committed checkout. PriceChanges lists cart
// lines whose snapshot price differed from the price the order was charged at.
type CheckoutResult struct {
	Order        *Order        `json:"order"`
	PriceChanges []PriceChange `json:"price_changes"`
}
