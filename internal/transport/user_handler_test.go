package transport

import (
	"context"
	"net/http"
	"testing"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"
	"kuickmart/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRouter(users service.UserService) http.Handler {
	r := newTestRouter()
	NewUserHandler(users, zap.NewNop()).RegisterRoutes(r, r.auth)
	return r
}

func registeringUsers() *stubUsers {
	return &stubUsers{
		register: func(_ context.Context, email, _, first, last string) (*domain.User, error) {
			return &domain.User{ID: uuid.New(), Email: email, FirstName: first, LastName: last, Role: domain.RoleUser}, nil
		},
	}
}

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)
	router := newUserRouter(registeringUsers())

	valid := RegisterRequest{Email: "shopper@example.com", Password: "ValidPass123", FirstName: "Ada", LastName: "Lovelace"}
	breakers := []func(RegisterRequest) RegisterRequest{
		func(r RegisterRequest) RegisterRequest { r.Email = ""; return r },
		func(r RegisterRequest) RegisterRequest { r.Email = "not-an-email"; return r },
		func(r RegisterRequest) RegisterRequest { r.Password = "short"; return r },
		func(r RegisterRequest) RegisterRequest { r.FirstName = ""; return r },
		func(r RegisterRequest) RegisterRequest { r.LastName = ""; return r },
	}

	properties.Property("registration with a broken field answers 400 with field errors", prop.ForAll(
		func(idx int) bool {
			w := do(t, router, http.MethodPost, "/api/users/register", "", breakers[idx](valid))
			if w.Code != http.StatusBadRequest {
				return false
			}
			detail := errorOf(t, w)
			_, ok := detail.Details["validation_errors"]
			return ok
		},
		gen.IntRange(0, len(breakers)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SuccessfulRegistrationReturnsProfile(t *testing.T) {
	properties := gopter.NewProperties(nil)
	router := newUserRouter(registeringUsers())

	properties.Property("registration echoes the profile with a generated id", prop.ForAll(
		func(email, password, first, last string) bool {
			w := do(t, router, http.MethodPost, "/api/users/register", "", RegisterRequest{
				Email: email, Password: password, FirstName: first, LastName: last,
			})
			if w.Code != http.StatusCreated {
				return false
			}
			profile := decodeBody[UserProfile](t, w)
			_, err := uuid.Parse(profile.ID)
			return err == nil && profile.Email == email && profile.FirstName == first &&
				profile.LastName == last && profile.Role == domain.RoleUser
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	users := &stubUsers{
		register: func(context.Context, string, string, string, string) (*domain.User, error) {
			return nil, repository.ErrUserAlreadyExists
		},
	}

	w := do(t, newUserRouter(users), http.MethodPost, "/api/users/register", "", RegisterRequest{
		Email: "taken@example.com", Password: "ValidPass123", FirstName: "Ada", LastName: "Lovelace",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", Role: domain.RoleUser}
	users := &stubUsers{
		login: func(_ context.Context, email, password string) (string, string, *domain.User, error) {
			if password != "ValidPass123" {
				return "", "", nil, service.ErrInvalidCredentials
			}
			return "access", "refresh", user, nil
		},
	}
	router := newUserRouter(users)

	t.Run("valid credentials return both tokens", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/users/login", "", LoginRequest{Email: user.Email, Password: "ValidPass123"})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[LoginResponse](t, w)
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "refresh", resp.RefreshToken)
		assert.Equal(t, user.ID.String(), resp.User.ID)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/users/login", "", LoginRequest{Email: user.Email, Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid email or password", errorOf(t, w).Message)
	})
}

func TestRefresh_ExpiredAndRevokedTokens(t *testing.T) {
	users := &stubUsers{
		refresh: func(_ context.Context, token string) (string, error) {
			if token == "expired" {
				return "", service.ErrTokenExpired
			}
			return "", service.ErrInvalidToken
		},
	}
	router := newUserRouter(users)

	for _, token := range []string{"expired", "revoked"} {
		w := do(t, router, http.MethodPost, "/api/users/refresh", "", RefreshRequest{RefreshToken: token})
		assert.Equal(t, http.StatusUnauthorized, w.Code, token)
	}
}

func TestProfile_RequiresAuthentication(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", Role: domain.RoleUser}
	users := &stubUsers{
		getByID: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
			if id != user.ID {
				return nil, repository.ErrUserNotFound
			}
			return user, nil
		},
	}
	router := newUserRouter(users)

	w := do(t, router, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodGet, "/api/users/profile", tokenFor(t, user.ID, domain.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Email, decodeBody[UserProfile](t, w).Email)

	w = do(t, router, http.MethodGet, "/api/users/profile", tokenFor(t, uuid.New(), domain.RoleUser), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
