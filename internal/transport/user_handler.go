package transport

import (
	"errors"
	"net/http"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest changes profile fields; empty fields are kept
type UpdateProfileRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserProfile is the public view of an account
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func toProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
}

// UserHandler serves registration, sessions and the caller's own profile
type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// RegisterRoutes mounts /api/users. Session creation is public, the rest
// sits behind authMiddleware.
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		r.With(authMiddleware).Post("/logout", h.Logout)
		r.With(authMiddleware).Get("/profile", h.GetProfile)
		r.With(authMiddleware).Put("/profile", h.UpdateProfile)
	})
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if !decodeRequest(w, r, h.logger, &body) {
		return
	}

	created, err := h.users.Register(r.Context(), body.Email, body.Password, body.FirstName, body.LastName)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "registration failed")
		return
	}

	h.logger.Info("Account created", zap.Stringer("user_id", created.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, toProfile(created))
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decodeRequest(w, r, h.logger, &body) {
		return
	}

	access, refresh, account, err := h.users.Login(r.Context(), body.Email, body.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.logger.Info("Rejected login", zap.String("email", body.Email))
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err, "login failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toProfile(account),
	})
}

// Logout revokes the refresh token in the body
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var body RefreshRequest
	if !decodeRequest(w, r, h.logger, &body) {
		return
	}
	if err := h.users.Logout(r.Context(), body.RefreshToken); err != nil {
		respondWithServiceError(w, h.logger, err, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var body RefreshRequest
	if !decodeRequest(w, r, h.logger, &body) {
		return
	}

	access, err := h.users.RefreshToken(r.Context(), body.RefreshToken)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "token refresh failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: access})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	me, ok := currentUser(w, r)
	if !ok {
		return
	}

	account, err := h.users.GetUserByID(r.Context(), me)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "profile lookup failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toProfile(account))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	me, ok := currentUser(w, r)
	if !ok {
		return
	}

	var body UpdateProfileRequest
	if !decodeRequest(w, r, h.logger, &body) {
		return
	}

	account, err := h.users.UpdateProfile(r.Context(), me, body.Email, body.FirstName, body.LastName)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "profile update failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toProfile(account))
}
