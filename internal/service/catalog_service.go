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
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const categoryCacheSize = 256

// ProductInput carries the writable product fields
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Stock       int
	Colors      []string
	Images      []string
	VideoURL    string
}

// StockReserver is the stock surface the order workflow reserves against
type StockReserver interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
}

// CatalogService defines the interface for catalog reads and administration
type CatalogService interface {
	StockReserver

	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	// UpdateProduct applies input only if version matches the stored product
	UpdateProduct(ctx context.Context, id uuid.UUID, version int, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	categories   *lru.Cache[uuid.UUID, domain.Category]
	logger       *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	cache, err := lru.New[uuid.UUID, domain.Category](categoryCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		categories:   cache,
		logger:       logger,
	}
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	filter = filter.Normalize()
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &domain.ProductPage{
		Products:   products,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, input)

	if err := product.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.Int("stock", product.Stock))
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, version int, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if product.Version != version {
		return nil, fmt.Errorf("product %s is at version %d, not %d: %w", id, product.Version, version, repository.ErrProductVersionConflict)
	}

	applyProductInput(product, input)
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// DecrementStock reserves qty units. A shortfall is reported as an
// *domain.InsufficientStockError naming the product.
func (s *catalogService) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	available, err := s.productRepo.DecrementStock(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return &domain.InsufficientStockError{Items: []domain.StockShortfall{
				{ProductID: productID, Requested: qty, Available: available},
			}}
		}
		return fmt.Errorf("failed to decrement stock of product %s: %w", productID, err)
	}
	return nil
}

func (s *catalogService) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := s.productRepo.IncrementStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("failed to increment stock of product %s: %w", productID, err)
	}
	return nil
}

// GetCategory reads through the category cache
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if cached, ok := s.categories.Get(id); ok {
		return &cached, nil
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	s.categories.Add(id, *category)
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}

	category := &domain.Category{ID: id, Name: name, Description: description}
	s.categories.Remove(id)
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category %s: %w", id, err)
	}
	return category, nil
}

// DeleteCategory is rejected with *domain.CategoryInUseError while products
// reference the category
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	s.categories.Remove(id)
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		var inUse *domain.CategoryInUseError
		if errors.As(err, &inUse) {
			s.logger.Info("Category delete rejected",
				zap.String("category_id", id.String()),
				zap.Int("products", inUse.Products),
			)
			return err
		}
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	return nil
}

func applyProductInput(p *domain.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price.Round(domain.PriceScale)
	p.CategoryID = in.CategoryID
	p.Stock = in.Stock
	p.Colors = domain.NormalizeColors(in.Colors)
	p.Images = in.Images
	if p.Images == nil {
		p.Images = []string{}
	}
	p.VideoURL = in.VideoURL
}
