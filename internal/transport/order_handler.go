package transport

import (
	"net/http"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderHandler serves checkout and order history, plus the admin fulfillment flags
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)
		r.Get("/", h.ListAllOrders)
		r.Put("/{id}/pay", h.MarkPaid)
		r.Put("/{id}/deliver", h.MarkDelivered)
	})
}

// Checkout turns the caller's cart into an order or reports every short product
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.orders.Checkout(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to place order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), userID, middleware.IsAdmin(r.Context()), orderID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	orders, total, err := h.orders.ListAllOrders(r.Context(), page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, Page[*domain.Order]{
		Items:      orders,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.MarkPaid(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to mark order paid")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.MarkDelivered(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to mark order delivered")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
