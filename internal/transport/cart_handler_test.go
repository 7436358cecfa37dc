package transport

import (
	"context"
	"net/http"
	"testing"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryCart keeps one cart per user with fixed product stock
type memoryCart struct {
	stock map[uuid.UUID]int
	carts map[uuid.UUID]*domain.Cart
}

func newMemoryCart(stock map[uuid.UUID]int) *memoryCart {
	return &memoryCart{stock: stock, carts: map[uuid.UUID]*domain.Cart{}}
}

func (m *memoryCart) cart(userID uuid.UUID) *domain.Cart {
	if m.carts[userID] == nil {
		m.carts[userID] = domain.NewCart(userID)
	}
	return m.carts[userID]
}

func (m *memoryCart) summary(userID uuid.UUID) *domain.CartSummary {
	c := m.cart(userID)
	return &domain.CartSummary{UserID: userID, Items: c.Items, Total: c.Total()}
}

func (m *memoryCart) GetCart(_ context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	return m.summary(userID), nil
}

func (m *memoryCart) AddItem(_ context.Context, userID, productID uuid.UUID, qty int, color string) (*domain.CartSummary, error) {
	stock, ok := m.stock[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if _, err := m.cart(userID).Add(productID, qty, stock, decimal.NewFromInt(2), color); err != nil {
		return nil, err
	}
	return m.summary(userID), nil
}

func (m *memoryCart) UpdateQuantity(_ context.Context, userID, productID uuid.UUID, qty int) (*domain.CartSummary, error) {
	if _, _, err := m.cart(userID).UpdateQuantity(productID, qty, m.stock[productID]); err != nil {
		return nil, err
	}
	return m.summary(userID), nil
}

func (m *memoryCart) RemoveItem(_ context.Context, userID, productID uuid.UUID) (*domain.CartSummary, error) {
	m.cart(userID).Remove(productID)
	return m.summary(userID), nil
}

func (m *memoryCart) ClearCart(_ context.Context, userID uuid.UUID) error {
	m.cart(userID).Clear()
	return nil
}

func TestCartHandler_Lifecycle(t *testing.T) {
	productID := uuid.New()
	soldOut := uuid.New()
	carts := newMemoryCart(map[uuid.UUID]int{productID: 3, soldOut: 0})

	r := newTestRouter()
	NewCartHandler(carts, zap.NewNop()).RegisterRoutes(r, r.auth)
	userID := uuid.New()
	token := tokenFor(t, userID, domain.RoleUser)

	w := do(t, r, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/cart/items", token, AddCartItemRequest{ProductID: productID.String(), Quantity: 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decodeBody[domain.CartSummary](t, w)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 3, summary.Items[0].Quantity, "quantity is clamped to stock")

	w = do(t, r, http.MethodPost, "/api/cart/items", token, AddCartItemRequest{ProductID: soldOut.String(), Quantity: 1})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorOf(t, w).Details, "items")

	w = do(t, r, http.MethodPut, "/api/cart/items/"+productID.String(), token, map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[domain.CartSummary](t, w).Items)

	w = do(t, r, http.MethodPut, "/api/cart/items/"+productID.String(), token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code, "updating a missing line")

	w = do(t, r, http.MethodPut, "/api/cart/items/"+productID.String(), token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "quantity is required")

	w = do(t, r, http.MethodDelete, "/api/cart/items/"+productID.String(), token, nil)
	assert.Equal(t, http.StatusOK, w.Code, "removing a missing line is not an error")

	w = do(t, r, http.MethodDelete, "/api/cart", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartHandler_RejectsMalformedInput(t *testing.T) {
	r := newTestRouter()
	NewCartHandler(newMemoryCart(nil), zap.NewNop()).RegisterRoutes(r, r.auth)
	token := tokenFor(t, uuid.New(), domain.RoleUser)

	w := do(t, r, http.MethodPost, "/api/cart/items", token, AddCartItemRequest{ProductID: "nope", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/cart/items", token, AddCartItemRequest{ProductID: uuid.NewString(), Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/api/cart/items/not-a-uuid", token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
