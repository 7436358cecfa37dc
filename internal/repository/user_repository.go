package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrUserAlreadyExists = fmt.Errorf("user with this email already exists: %w", domain.ErrConflict)
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// List returns one page, newest accounts first, and the total count
	List(ctx context.Context, limit, offset int) ([]*domain.User, int, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const selectUser = `SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at FROM users`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.CreatedAt, user.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrUserAlreadyExists
	case err != nil:
		return fmt.Errorf("insert user %s: %w", user.Email, err)
	}
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *userRepository) findOne(ctx context.Context, query string, key any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, key))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("find user %v: %w", key, err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users, err := collectRows(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("read users: %w", err)
	}
	return users, total, nil
}

// UpdateProfile writes email and names; UpdatedAt comes back from the trigger
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET email = $2, first_name = $3, last_name = $4 WHERE id = $1 RETURNING updated_at`,
		user.ID, user.Email, user.FirstName, user.LastName,
	).Scan(&user.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrUserNotFound
	case isUniqueViolation(err):
		return ErrUserAlreadyExists
	case err != nil:
		return fmt.Errorf("update user %s: %w", user.ID, err)
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	switch {
	case isCheckViolation(err):
		return domain.NewValidationError("role", "must be user or admin")
	case err != nil:
		return fmt.Errorf("set role of user %s: %w", id, err)
	}
	return affectedOne(result, ErrUserNotFound)
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return affectedOne(result, ErrUserNotFound)
}
