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
	ErrCategoryNotFound      = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrCategoryAlreadyExists = fmt.Errorf("category with this name already exists: %w", domain.ErrConflict)
)

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	// Delete removes a category only when no product references it; otherwise
	// it returns *domain.CategoryInUseError and changes nothing
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		c    domain.Category
		desc sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Description = desc.String
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Description, category.CreatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrCategoryAlreadyExists
	case err != nil:
		return fmt.Errorf("insert category %q: %w", category.Name, err)
	}
	return nil
}

// Update changes name and description; CreatedAt is refreshed from the row
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1 RETURNING created_at`,
		category.ID, category.Name, category.Description,
	).Scan(&category.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCategoryNotFound
	case isUniqueViolation(err):
		return ErrCategoryAlreadyExists
	case err != nil:
		return fmt.Errorf("update category %s: %w", category.ID, err)
	}
	return nil
}

// Delete removes an unreferenced category. The NOT EXISTS guard and the
// RESTRICT foreign key together make a concurrent product insert either
// block the delete or fail it.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM categories c
		WHERE c.id = $1
		  AND NOT EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id)`,
		id,
	)
	if isForeignKeyViolation(err, "fk_products_category") {
		return r.inUseError(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}

	if deleted, err := result.RowsAffected(); err != nil || deleted > 0 {
		return err
	}
	// Nothing deleted: either the category is gone or something references it
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return r.inUseError(ctx, id)
}

func (r *categoryRepository) inUseError(ctx context.Context, id uuid.UUID) error {
	var refs int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&refs); err != nil {
		return fmt.Errorf("count products in category %s: %w", id, err)
	}
	return &domain.CategoryInUseError{CategoryID: id, Products: refs}
}

// List returns every category ordered by name
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := collectRows(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM categories WHERE id = $1`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrCategoryNotFound
	case err != nil:
		return nil, fmt.Errorf("find category %s: %w", id, err)
	}
	return category, nil
}
