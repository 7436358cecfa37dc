package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kuickmart/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errClaims        = errors.New("invalid token claims")
)

// accessClaims mirrors the payload the user service signs
type accessClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id and role in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, authFailureMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Role)))
		})
	}
}

// OptionalAuthMiddleware attaches the user to the context when a valid token
// is present and lets anonymous or invalid requests through unchanged
func OptionalAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, jwtSecret)
			switch {
			case err == nil:
				r = r.WithContext(WithUser(r.Context(), claims.UserID, claims.Role))
			case !errors.Is(err, errMissingHeader):
				logger.Debug("Ignoring invalid optional token", zap.Error(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authFailureMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, errMissingHeader), errors.Is(err, errHeaderFormat), errors.Is(err, errClaims):
		return err.Error()
	}
	return "invalid token"
}

func authenticate(r *http.Request, jwtSecret string) (*accessClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errMissingHeader
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" || strings.Contains(raw, " ") {
		return nil, errHeaderFormat
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims.UserID == uuid.Nil || (claims.Role != domain.RoleUser && claims.Role != domain.RoleAdmin) {
		return nil, errClaims
	}
	return claims, nil
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// IsAdmin reports whether the request was made by an administrator
func IsAdmin(ctx context.Context) bool {
	role, ok := GetUserRole(ctx)
	return ok && role == domain.RoleAdmin
}
