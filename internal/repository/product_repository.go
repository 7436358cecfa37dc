package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound        = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrProductVersionConflict = fmt.Errorf("product was modified concurrently: %w", domain.ErrConflict)
	ErrProductCategoryMissing = fmt.Errorf("product category %w", domain.ErrNotFound)
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	// Update writes product if its Version still matches the stored row and
	// bumps the version on success
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error)
	// DecrementStock subtracts qty only if at least qty units remain. On
	// failure it returns the units that were available.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (remaining int, err error)
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
}

// StockShortError is returned by DecrementStock when the conditional update
// matched no row because the stock was too low
type StockShortError struct {
	Available int
}

func (e *StockShortError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

func (e *StockShortError) Is(target error) bool {
	return target == domain.ErrInsufficientStock
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, category_id, stock, colors, images, video_url, version, created_at, updated_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var description, videoURL sql.NullString
	err := row.Scan(
		&product.ID,
		&product.Name,
		&description,
		&product.Price,
		&product.CategoryID,
		&product.Stock,
		typeMap.SQLScanner(&product.Colors),
		typeMap.SQLScanner(&product.Images),
		&videoURL,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.Description = description.String
	product.VideoURL = videoURL.String
	if product.Colors == nil {
		product.Colors = []string{}
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	return product, nil
}

// productWriteError maps constraint failures shared by Create and Update
func productWriteError(err error) error {
	switch {
	case isForeignKeyViolation(err, "fk_products_category"):
		return ErrProductCategoryMissing
	case isCheckViolation(err):
		return domain.NewValidationError("product", "price and stock must be non-negative")
	}
	return err
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.Version == 0 {
		product.Version = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		product.ID, product.Name, product.Description, product.Price, product.CategoryID, product.Stock,
		nonNil(product.Colors), nonNil(product.Images), nullString(product.VideoURL),
		product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if mapped := productWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert product %q: %w", product.Name, err)
	}
	return nil
}

// Update is a compare-and-swap on Version. A missing row reports not found,
// a stale version reports a conflict.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5,
		    stock = $6, colors = $7, images = $8, video_url = $9,
		    version = version + 1
		WHERE id = $1 AND version = $10
		RETURNING version, updated_at`,
		product.ID, product.Name, product.Description, product.Price, product.CategoryID, product.Stock,
		nonNil(product.Colors), nonNil(product.Images), nullString(product.VideoURL),
		product.Version,
	).Scan(&product.Version, &product.UpdatedAt)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if _, findErr := r.FindByID(ctx, product.ID); findErr != nil {
			return findErr
		}
		return ErrProductVersionConflict
	}
	if mapped := productWriteError(err); mapped != err {
		return mapped
	}
	return fmt.Errorf("update product %s: %w", product.ID, err)
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return affectedOne(result, ErrProductNotFound)
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrProductNotFound
	case err != nil:
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return product, nil
}

// FindByIDs retrieves the products that exist among ids
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	products := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("find products by id: %w", err)
	}
	found, err := collectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	for _, p := range found {
		products[p.ID] = p
	}
	return products, nil
}

// List filters by category and a case-insensitive name/description match,
// then sorts and pages
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	filter = filter.Normalize()

	var where []string
	var args []any
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	// SortBy and SortOrder are whitelisted by Normalize; id breaks ties so pages are stable
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, filter.SortBy, filter.SortOrder, len(args)+1, len(args)+2)

	args = append(args, filter.PageSize, filter.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("read products: %w", err)
	}
	return products, total, nil
}

// DecrementStock is a compare-and-decrement executed as a single statement,
// so concurrent decrements of the same row serialize on the row lock and the
// stock can never go negative
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.NewValidationError("quantity", "must be greater than 0")
	}

	query := `
		UPDATE products
		SET stock = stock - $2, version = version + 1
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, id, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var available int
	err = r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}

	return available, &StockShortError{Available: available}
}

// IncrementStock returns units to stock
func (r *productRepository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return domain.NewValidationError("quantity", "must be greater than 0")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, version = version + 1 WHERE id = $1`,
		id, qty,
	)
	if err != nil {
		return fmt.Errorf("increment stock of %s: %w", id, err)
	}
	return affectedOne(result, ErrProductNotFound)
}

// CountByCategory returns how many products reference a category
func (r *productRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products by category: %w", err)
	}
	return count, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
