package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)

// CartItem is one line of a user's cart. SnapshotPrice is the product price
// captured when the line was last set; it is not refreshed from the catalog.
type CartItem struct {
	ProductID     uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	SnapshotPrice decimal.Decimal `json:"snapshot_price" db:"snapshot_price"`
	Color         string          `json:"color,omitempty" db:"color"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Subtotal returns quantity x snapshot price
func (i CartItem) Subtotal() decimal.Decimal {
	return i.SnapshotPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-user pending purchase. Items are kept in insertion order and
// hold at most one entry per product id; all mutations go through its methods.
type Cart struct {
	UserID uuid.UUID  `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// NewCart returns an empty cart for a user
func NewCart(userID uuid.UUID, items ...CartItem) *Cart {
	c := &Cart{UserID: userID, Items: []CartItem{}}
	for _, item := range items {
		c.put(item)
	}
	return c
}

// Add sets the line for productID. The quantity is clamped to [1, stock] and an
// existing line for the same product is replaced, never accumulated.
func (c *Cart) Add(productID uuid.UUID, qty, stock int, price decimal.Decimal, color string) (CartItem, error) {
	if stock <= 0 {
		return CartItem{}, &InsufficientStockError{Items: []StockShortfall{
			{ProductID: productID, Requested: max(qty, 1), Available: 0},
		}}
	}

	item := CartItem{
		ProductID:     productID,
		Quantity:      clampQuantity(qty, stock),
		SnapshotPrice: price,
		Color:         color,
		UpdatedAt:     time.Now().UTC(),
	}
	c.put(item)
	return item, nil
}

// UpdateQuantity changes the quantity of an existing line. A quantity of zero
// or less removes the line, in which case removed is true.
func (c *Cart) UpdateQuantity(productID uuid.UUID, qty, stock int) (item CartItem, removed bool, err error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return CartItem{}, false, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}

	if qty <= 0 {
		c.Remove(productID)
		return CartItem{}, true, nil
	}

	if stock <= 0 {
		return CartItem{}, false, &InsufficientStockError{Items: []StockShortfall{
			{ProductID: productID, Requested: qty, Available: 0},
		}}
	}

	c.Items[idx].Quantity = clampQuantity(qty, stock)
	c.Items[idx].UpdatedAt = time.Now().UTC()
	return c.Items[idx], false, nil
}

// Remove deletes the line for productID and reports whether it existed
func (c *Cart) Remove(productID uuid.UUID) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// Item returns the line for productID
func (c *Cart) Item(productID uuid.UUID) (CartItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx], true
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total is the sum of quantity x snapshot price over all lines
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// PriceChange reports a cart line whose live price drifted from its snapshot
type PriceChange struct {
	ProductID     uuid.UUID       `json:"product_id"`
	SnapshotPrice decimal.Decimal `json:"snapshot_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
}

// PriceChanges compares each line against live prices. Lines without a live
// price are skipped.
func (c *Cart) PriceChanges(live map[uuid.UUID]decimal.Decimal) []PriceChange {
	changes := []PriceChange{}
	for _, item := range c.Items {
		current, ok := live[item.ProductID]
		if !ok || current.Equal(item.SnapshotPrice) {
			continue
		}
		changes = append(changes, PriceChange{
			ProductID:     item.ProductID,
			SnapshotPrice: item.SnapshotPrice,
			CurrentPrice:  current,
		})
	}
	return changes
}

func (c *Cart) put(item CartItem) {
	if idx := c.indexOf(item.ProductID); idx >= 0 {
		c.Items[idx] = item
		return
	}
	c.Items = append(c.Items, item)
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func clampQuantity(qty, stock int) int {
	if qty < 1 {
		qty = 1
	}
	if qty > stock {
		qty = stock
	}
	return qty
}

// CartSummary is the cart as shown to its owner: lines at their snapshot
// prices plus notices for lines whose live price has moved
type CartSummary struct {
	UserID       uuid.UUID       `json:"user_id"`
	Items        []CartItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	PriceChanges []PriceChange   `json:"price_changes"`
}
