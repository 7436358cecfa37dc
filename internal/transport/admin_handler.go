package transport

import (
	"net/http"

	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChangeRoleRequest sets a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// AdminHandler serves back-office user management and the sales dashboard
type AdminHandler struct {
	users     service.UserService
	analytics service.AnalyticsService
	logger    *zap.Logger
}

func NewAdminHandler(users service.UserService, analytics service.AnalyticsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{users: users, analytics: analytics, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Put("/users/{id}/role", h.ChangeRole)
		r.Get("/analytics", h.Dashboard)
	})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	users, total, err := h.users.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list users")
		return
	}

	items := make([]UserProfile, 0, len(users))
	for _, u := range users {
		items = append(items, toProfile(u))
	}
	middleware.RespondWithJSON(w, http.StatusOK, Page[UserProfile]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get user")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), actorID, userID); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete user")
		return
	}

	h.logger.Info("User deleted",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.ChangeRole(r.Context(), actorID, userID, req.Role)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to change role")
		return
	}

	h.logger.Info("User role changed",
		zap.String("user_id", userID.String()),
		zap.String("role", user.Role),
		zap.String("actor_id", actorID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to build sales dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}
