package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrRefreshTokenNotFound = fmt.Errorf("refresh token %w", domain.ErrNotFound)
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
)

// RefreshTokenRepository stores login sessions as opaque tokens
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns ErrRefreshTokenRevoked for tokens that exist but were revoked
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	// RevokeAllForUser revokes every live token of a user, e.g. after a role change
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db DBTX
}

func NewRefreshTokenRepository(db DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked) VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	switch {
	case isForeignKeyViolation(err, "fk_refresh_tokens_user"):
		return ErrUserNotFound
	case err != nil:
		return fmt.Errorf("insert refresh token for user %s: %w", token.UserID, err)
	}
	return nil
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var session domain.RefreshToken
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, created_at, revoked FROM refresh_tokens WHERE token = $1`, token,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.ExpiresAt, &session.CreatedAt, &session.Revoked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("find refresh token: %w", err)
	case session.Revoked:
		return nil, ErrRefreshTokenRevoked
	}
	return &session, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return affectedOne(result, ErrRefreshTokenNotFound)
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID); err != nil {
		return fmt.Errorf("revoke sessions of user %s: %w", userID, err)
	}
	return nil
}

// DeleteExpired purges tokens that expired before the cutoff and reports how many
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	return result.RowsAffected()
}
