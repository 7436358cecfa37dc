package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kuickmart/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			path := "/" + pathSuffix
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(hoursAgo int, role string) bool {
			token := signToken(t, testSecret, jwt.MapClaims{
				"user_id": uuid.NewString(),
				"role":    role,
				"exp":     time.Now().Add(-time.Duration(hoursAgo) * time.Hour).Unix(),
			})

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.IntRange(1, 48),
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensCarryUserIntoContext(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens expose user id and role to handlers", prop.ForAll(
		func(role string) bool {
			userID := uuid.New()
			token := signToken(t, testSecret, jwt.MapClaims{
				"user_id": userID.String(),
				"role":    role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			})

			var gotID uuid.UUID
			var gotRole string
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserID(r.Context())
				gotRole, _ = GetUserRole(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && gotID == userID && gotRole == role
		},
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	properties.Property("garbage bearer tokens are rejected", prop.ForAll(
		func(invalidToken string) bool {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_RejectsMalformedClaims(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	cases := map[string]jwt.MapClaims{
		"non uuid subject": {"user_id": "not-a-uuid", "role": domain.RoleUser, "exp": time.Now().Add(time.Hour).Unix()},
		"unknown role":     {"user_id": uuid.NewString(), "role": "owner", "exp": time.Now().Add(time.Hour).Unix()},
		"missing role":     {"user_id": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
	token := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    domain.RoleAdmin,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MissingBearerPrefixRejected(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    domain.RoleUser,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	var seen bool
	handler := OptionalAuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, seen)
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/products", nil)
		req.Header.Set("Authorization", "Bearer junk")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, seen)
	})

	t.Run("valid token attaches user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/products", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{
			"user_id": uuid.NewString(),
			"role":    domain.RoleUser,
			"exp":     time.Now().Add(time.Hour).Unix(),
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, seen)
	})
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(okHandler())

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"admin allowed", domain.RoleAdmin, http.StatusOK},
		{"user forbidden", domain.RoleUser, http.StatusForbidden},
		{"anonymous forbidden", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/users", nil)
			if tt.role != "" {
				req = req.WithContext(WithUser(req.Context(), uuid.New(), tt.role))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
