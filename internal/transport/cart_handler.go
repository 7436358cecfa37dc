package transport

import (
	"net/http"

	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest sets a cart line; quantity is clamped to the live stock
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	Color     string `json:"color" validate:"max=50"`
}

// UpdateCartItemRequest changes a line's quantity; zero removes the line
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// CartHandler serves the signed-in user's cart
type CartHandler struct {
	cart   service.CartService
	logger *zap.Logger
}

func NewCartHandler(cart service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productId}", h.UpdateItem)
		r.Delete("/items/{productId}", h.RemoveItem)
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.cart.GetCart(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	summary, err := h.cart.AddItem(r.Context(), userID, uuid.MustParse(req.ProductID), req.Quantity, req.Color)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add cart item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	summary, err := h.cart.UpdateQuantity(r.Context(), userID, productID, *req.Quantity)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productId")
	if !ok {
		return
	}

	summary, err := h.cart.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to remove cart item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.cart.ClearCart(r.Context(), userID); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
