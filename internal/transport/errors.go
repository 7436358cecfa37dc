package transport

import (
	"errors"
	"net/http"
	"strconv"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondWithServiceError maps a service error onto the HTTP error envelope
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var stockErr *domain.InsufficientStockError
	var inUseErr *domain.CategoryInUseError
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &stockErr):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", map[string]interface{}{
			"items": stockErr.Items,
		})
	case errors.As(err, &inUseErr):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "category is in use", map[string]interface{}{
			"category_id": inUseErr.CategoryID,
			"products":    inUseErr.Products,
		})
	case errors.As(err, &validationErr):
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: validationErr.Field, Message: validationErr.Message},
		})
	case errors.Is(err, domain.ErrValidation):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeRequest decodes and validates a JSON body, writing the 400 itself on failure
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathUUID parses a UUID route parameter, writing the 400 itself on failure
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: name, Message: "Must be a valid UUID"},
		})
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user id, writing the 401 itself when absent
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

// queryInt reads a positive integer query parameter, returning def when absent or malformed
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// Page wraps a paginated admin listing
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// pageParams reads page and limit, clamped the way the services clamp them
func pageParams(r *http.Request) (page, pageSize int) {
	page = min(queryInt(r, "page", 1), domain.MaxPage)
	pageSize = min(queryInt(r, "limit", domain.DefaultPageSize), domain.MaxPageSize)
	return page, pageSize
}
