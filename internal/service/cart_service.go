package service

import (
	"context"
	"fmt"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService defines the interface for cart operations. Every mutation loads
// the cart aggregate, applies the change through its methods and persists
// only the touched line.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int, color string) (*domain.CartSummary, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.CartSummary, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.CartSummary, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart of user %s: %w", userID, err)
	}
	return s.summarize(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int, color string) (*domain.CartSummary, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}

	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart of user %s: %w", userID, err)
	}

	color, err = pickColor(color, product.Colors)
	if err != nil {
		return nil, err
	}

	item, err := cart.Add(productID, qty, product.Stock, product.Price, color)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.Upsert(ctx, userID, item); err != nil {
		return nil, fmt.Errorf("failed to save cart item %s: %w", productID, err)
	}
	return s.summarize(ctx, cart)
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.CartSummary, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart of user %s: %w", userID, err)
	}
	if _, ok := cart.Item(productID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCartItemNotFound, productID)
	}

	stock := 0
	if qty > 0 {
		product, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
		}
		stock = product.Stock
	}

	item, removed, err := cart.UpdateQuantity(productID, qty, stock)
	if err != nil {
		return nil, err
	}

	if removed {
		err = s.cartRepo.Delete(ctx, userID, productID)
	} else {
		err = s.cartRepo.Upsert(ctx, userID, item)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save cart item %s: %w", productID, err)
	}
	return s.summarize(ctx, cart)
}

// RemoveItem is idempotent: removing an absent line returns the unchanged cart
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart of user %s: %w", userID, err)
	}

	if cart.Remove(productID) {
		if err := s.cartRepo.Delete(ctx, userID, productID); err != nil {
			return nil, fmt.Errorf("failed to remove cart item %s: %w", productID, err)
		}
	}
	return s.summarize(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart of user %s: %w", userID, err)
	}
	return nil
}

func (s *cartService) summarize(ctx context.Context, cart *domain.Cart) (*domain.CartSummary, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	live := make(map[uuid.UUID]decimal.Decimal, len(products))
	for id, p := range products {
		live[id] = p.Price
	}

	return &domain.CartSummary{
		UserID:       cart.UserID,
		Items:        cart.Items,
		Total:        cart.Total(),
		PriceChanges: cart.PriceChanges(live),
	}, nil
}

// pickColor returns the normalized color if the product offers it
func pickColor(color string, offered []string) (string, error) {
	normalized := domain.NormalizeColors([]string{color})
	if len(normalized) == 0 {
		return "", nil
	}
	for _, c := range offered {
		if c == normalized[0] {
			return c, nil
		}
	}
	return "", domain.NewValidationError("color", fmt.Sprintf("%q is not offered for this product", color))
}
