package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "transport-test-secret"

// testRouter mounts handlers behind the real auth middleware
type testRouter struct {
	chi.Router
	auth         func(http.Handler) http.Handler
	optionalAuth func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

func newTestRouter() *testRouter {
	logger := zap.NewNop()
	r := chi.NewRouter()
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	return &testRouter{
		Router:       r,
		auth:         middleware.AuthMiddleware(testSecret, logger),
		optionalAuth: middleware.OptionalAuthMiddleware(testSecret, logger),
		requireAdmin: middleware.RequireAdmin(logger),
	}
}

func tokenFor(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// do sends a request through h; token may be empty for anonymous calls
func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	return decodeBody[middleware.ErrorResponse](t, w).Error
}

// Stubs embed the service interface so each test overrides only what it calls.

type stubUsers struct {
	service.UserService
	register   func(ctx context.Context, email, password, first, last string) (*domain.User, error)
	login      func(ctx context.Context, email, password string) (string, string, *domain.User, error)
	refresh    func(ctx context.Context, token string) (string, error)
	getByID    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	changeRole func(ctx context.Context, actor, id uuid.UUID, role string) (*domain.User, error)
	deleteUser func(ctx context.Context, actor, id uuid.UUID) error
	list       func(ctx context.Context, page, size int) ([]*domain.User, int, error)
}

func (s *stubUsers) Register(ctx context.Context, email, password, first, last string) (*domain.User, error) {
	return s.register(ctx, email, password, first, last)
}

func (s *stubUsers) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	return s.login(ctx, email, password)
}

func (s *stubUsers) RefreshToken(ctx context.Context, token string) (string, error) {
	return s.refresh(ctx, token)
}

func (s *stubUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getByID(ctx, id)
}

func (s *stubUsers) ChangeRole(ctx context.Context, actor, id uuid.UUID, role string) (*domain.User, error) {
	return s.changeRole(ctx, actor, id, role)
}

func (s *stubUsers) DeleteUser(ctx context.Context, actor, id uuid.UUID) error {
	return s.deleteUser(ctx, actor, id)
}

func (s *stubUsers) ListUsers(ctx context.Context, page, size int) ([]*domain.User, int, error) {
	return s.list(ctx, page, size)
}

type stubCatalog struct {
	service.CatalogService
	list           func(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error)
	create         func(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	update         func(ctx context.Context, id uuid.UUID, version int, in service.ProductInput) (*domain.Product, error)
	deleteCategory func(ctx context.Context, id uuid.UUID) error
}

func (s *stubCatalog) ListProducts(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	return s.list(ctx, f)
}

func (s *stubCatalog) CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	return s.create(ctx, in)
}

func (s *stubCatalog) UpdateProduct(ctx context.Context, id uuid.UUID, version int, in service.ProductInput) (*domain.Product, error) {
	return s.update(ctx, id, version, in)
}

func (s *stubCatalog) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.deleteCategory(ctx, id)
}

type recordingSearch struct {
	service.SearchService
	terms []string
}

func (s *recordingSearch) Record(_ context.Context, _ uuid.UUID, term string) {
	s.terms = append(s.terms, term)
}

func (s *recordingSearch) History(_ context.Context, userID uuid.UUID) ([]*domain.SearchEntry, error) {
	out := make([]*domain.SearchEntry, 0, len(s.terms))
	for _, term := range s.terms {
		out = append(out, &domain.SearchEntry{UserID: userID, SearchTerm: term})
	}
	return out, nil
}

func testProduct(price string, stock int) *domain.Product {
	return &domain.Product{
		ID:         uuid.New(),
		Name:       "Sparkling water",
		Price:      decimal.RequireFromString(price),
		CategoryID: uuid.New(),
		Stock:      stock,
		Version:    1,
	}
}
