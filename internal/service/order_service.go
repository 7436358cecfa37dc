package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/notify"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService defines the interface for checkout and order fulfillment
type OrderService interface {
	// Checkout turns the user's cart into an order. Stock for every line is
	// reserved or none is: a shortfall returns *domain.InsufficientStockError
	// naming every short line and leaves stock and cart as they were.
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.CheckoutResult, error)
	// GetOrder returns an order visible to the requester
	GetOrder(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	stock       StockReserver
	rewards     RewardsService
	publisher   notify.Publisher
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	stock StockReserver,
	rewards RewardsService,
	publisher notify.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		stock:       stock,
		rewards:     rewards,
		publisher:   publisher,
		logger:      logger,
	}
}

type reservation struct {
	productID uuid.UUID
	qty       int
}

func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.CheckoutResult, error) {
	attemptID := uuid.New()
	log := s.logger.With(zap.String("user_id", userID.String()), zap.String("attempt_id", attemptID.String()))
	log.Info("Checkout started", zap.String("state", string(domain.CheckoutDraft)))

	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart of user %s: %w", userID, err)
	}
	if cart.IsEmpty() {
		log.Info("Checkout rejected", zap.String("state", string(domain.CheckoutRejected)), zap.String("reason", "empty cart"))
		return nil, domain.NewValidationError("cart", "is empty")
	}

	log.Info("Reserving stock", zap.String("state", string(domain.CheckoutValidating)), zap.Int("lines", len(cart.Items)))

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	// Every line is attempted so the rejection can name all short products
	var (
		reserved  []reservation
		shortfall []domain.StockShortfall
	)
	for _, item := range cart.Items {
		if _, ok := products[item.ProductID]; !ok {
			shortfall = append(shortfall, domain.StockShortfall{ProductID: item.ProductID, Requested: item.Quantity})
			continue
		}

		err := s.stock.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			reserved = append(reserved, reservation{productID: item.ProductID, qty: item.Quantity})
			continue
		}

		var short *domain.InsufficientStockError
		switch {
		case errors.As(err, &short):
			shortfall = append(shortfall, short.Items...)
		case errors.Is(err, domain.ErrNotFound):
			shortfall = append(shortfall, domain.StockShortfall{ProductID: item.ProductID, Requested: item.Quantity})
		default:
			s.compensate(ctx, log, reserved)
			log.Error("Checkout aborted", zap.String("state", string(domain.CheckoutRejected)), zap.Error(err))
			return nil, fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID, err)
		}
	}

	if len(shortfall) > 0 {
		s.compensate(ctx, log, reserved)
		rejection := &domain.InsufficientStockError{Items: shortfall}
		log.Info("Checkout rejected",
			zap.String("state", string(domain.CheckoutRejected)),
			zap.Int("short_lines", len(shortfall)),
			zap.Strings("products", uuidsToStrings(rejection.ProductIDs())),
		)
		return nil, rejection
	}

	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     make([]domain.OrderItem, 0, len(cart.Items)),
		CreatedAt: time.Now().UTC(),
	}
	live := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, item := range cart.Items {
		price := products[item.ProductID].Price
		live[item.ProductID] = price
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			PriceAtOrder: price,
		})
	}
	order.TotalAmount = domain.ComputeTotal(order.Items)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.compensate(ctx, log, reserved)
		if errors.Is(err, domain.ErrConflict) {
			log.Info("Checkout rejected", zap.String("state", string(domain.CheckoutRejected)), zap.String("reason", "cart already consumed"))
			return nil, err
		}
		log.Error("Checkout aborted", zap.String("state", string(domain.CheckoutRejected)), zap.Error(err))
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	log.Info("Checkout committed",
		zap.String("state", string(domain.CheckoutCommitted)),
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	s.publisher.Publish(ctx, domain.Notification{
		Type:      domain.NotificationOrder,
		Message:   fmt.Sprintf("Order %s placed", order.ID),
		CreatedAt: order.CreatedAt,
	})

	return &domain.CheckoutResult{
		Order:        order,
		PriceChanges: cart.PriceChanges(live),
	}, nil
}

// compensate returns reserved units to stock. It runs detached from the
// request context so a cancelled request still restocks.
func (s *orderService) compensate(ctx context.Context, log *zap.Logger, reserved []reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range reserved {
		if err := s.stock.IncrementStock(ctx, r.productID, r.qty); err != nil {
			log.Error("Failed to compensate stock reservation",
				zap.String("product_id", r.productID.String()),
				zap.Int("quantity", r.qty),
				zap.Error(err),
			)
			continue
		}
		log.Info("Compensated stock reservation",
			zap.String("product_id", r.productID.String()),
			zap.Int("quantity", r.qty),
		)
	}
}

func (s *orderService) GetOrder(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	// Other users' orders are reported as missing
	if !isAdmin && order.UserID != requesterID {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, repository.ErrOrderNotFound)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of user %s: %w", userID, err)
	}
	return orders, nil
}

func (s *orderService) ListAllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	orders, total, err := s.orderRepo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// MarkPaid sets the paid flag and credits rewards. The credit is attempted
// even when the order was already paid; the ledger ignores repeats, so a
// retry after a failed credit completes it.
func (s *orderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	changed, err := s.orderRepo.MarkPaid(ctx, orderID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark order %s paid: %w", orderID, err)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	if _, err := s.rewards.Credit(ctx, order.UserID, order.ID, order.TotalAmount); err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Order paid", zap.String("order_id", orderID.String()))
	}
	return order, nil
}

func (s *orderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	changed, err := s.orderRepo.MarkDelivered(ctx, orderID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark order %s delivered: %w", orderID, err)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	if changed {
		s.logger.Info("Order delivered", zap.String("order_id", orderID.String()))
	}
	return order, nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
