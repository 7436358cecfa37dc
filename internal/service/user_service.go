package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfDemotion       = fmt.Errorf("administrators cannot change their own role: %w", domain.ErrValidation)
)

// UserService covers accounts, sessions and user administration
type UserService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, email, firstName, lastName string) (*domain.User, error)

	ListUsers(ctx context.Context, page, pageSize int) ([]*domain.User, int, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*domain.User, error)
}

type userService struct {
	users    repository.UserRepository
	sessions repository.RefreshTokenRepository
	tokens   *tokenIssuer
}

func NewUserService(
	users repository.UserRepository,
	sessions repository.RefreshTokenRepository,
	tokens TokenConfig,
) UserService {
	return &userService{
		users:    users,
		sessions: sessions,
		tokens:   newTokenIssuer(tokens, sessions),
	}
}

// Register creates a customer account. Emails are unique case-insensitively.
func (s *userService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	email = normalizeEmail(email)

	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, repository.ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("check email %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleUser,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}
	return user, nil
}

// Login checks the password and opens a new session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	access, err := s.tokens.accessFor(user)
	if err != nil {
		return "", "", nil, err
	}
	refresh, err := s.tokens.openSession(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return access, refresh, user, nil
}

// Logout revokes the session. Unknown tokens count as logged out.
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.Revoke(ctx, refreshToken)
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken issues an access token carrying the user's current role
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.lookupSession(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("look up user %s: %w", userID, err)
	}
	return s.tokens.accessFor(user)
}

func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokens.parse(tokenString)
}

func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, email, firstName, lastName string) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if email = normalizeEmail(email); email != "" {
		user.Email = email
	}
	user.FirstName = firstNonEmpty(firstName, user.FirstName)
	user.LastName = firstNonEmpty(lastName, user.LastName)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update user %s: %w", userID, err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page, pageSize int) ([]*domain.User, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	users, total, err := s.users.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// DeleteUser removes an account; administrators cannot delete themselves
func (s *userService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return domain.NewValidationError("id", "administrators cannot delete their own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}

// ChangeRole sets a user's role and revokes their sessions so the new role
// reaches every future access token
func (s *userService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.NewValidationError("role", "must be user or admin")
	}
	if actorID == userID {
		return nil, ErrSelfDemotion
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("change role of user %s: %w", userID, err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("revoke sessions of user %s: %w", userID, err)
	}
	return s.GetUserByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizePage(page, pageSize int) (int, int) {
	page = min(max(page, 1), domain.MaxPage)
	switch {
	case pageSize < 1:
		pageSize = domain.DefaultPageSize
	case pageSize > domain.MaxPageSize:
		pageSize = domain.MaxPageSize
	}
	return page, pageSize
}
