package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes when none are configured
const (
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims are the access token payload. Middleware reads user_id and role.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig controls signing and token lifetimes
type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// tokenIssuer signs HS256 access tokens and persists opaque refresh tokens
type tokenIssuer struct {
	key      []byte
	access   time.Duration
	refresh  time.Duration
	sessions repository.RefreshTokenRepository
	now      func() time.Time
}

func newTokenIssuer(cfg TokenConfig, sessions repository.RefreshTokenRepository) *tokenIssuer {
	issuer := &tokenIssuer{
		key:      []byte(cfg.Secret),
		access:   cfg.AccessExpiry,
		refresh:  cfg.RefreshExpiry,
		sessions: sessions,
		now:      time.Now,
	}
	if issuer.access <= 0 {
		issuer.access = AccessTokenExpiration
	}
	if issuer.refresh <= 0 {
		issuer.refresh = RefreshTokenExpiration
	}
	return issuer
}

func (t *tokenIssuer) accessFor(user *domain.User) (string, error) {
	issued := t.now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(t.access)),
		},
	}).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// openSession stores a fresh refresh token for user and returns its value
func (t *tokenIssuer) openSession(ctx context.Context, user *domain.User) (string, error) {
	issued := t.now()
	session := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: issued.Add(t.refresh),
		CreatedAt: issued,
	}
	if err := t.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return session.Token, nil
}

// lookupSession resolves a refresh token to its owner's id. Unknown, revoked
// and expired tokens are reported as token errors.
func (t *tokenIssuer) lookupSession(ctx context.Context, token string) (uuid.UUID, error) {
	session, err := t.sessions.FindByToken(ctx, token)
	switch {
	case errors.Is(err, repository.ErrRefreshTokenNotFound), errors.Is(err, repository.ErrRefreshTokenRevoked):
		return uuid.Nil, ErrInvalidToken
	case err != nil:
		return uuid.Nil, fmt.Errorf("look up refresh token: %w", err)
	case t.now().After(session.ExpiresAt):
		return uuid.Nil, ErrTokenExpired
	}
	return session.UserID, nil
}

func (t *tokenIssuer) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
