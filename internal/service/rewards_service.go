package service

import (
	"context"
	"fmt"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RewardsService defines the interface for the points ledger
type RewardsService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.RewardsAccount, error)
	// Credit grants points for a paid order at most once per orderID
	Credit(ctx context.Context, userID, orderID uuid.UUID, amount decimal.Decimal) (applied bool, err error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.RewardEntry, error)
}

type rewardsService struct {
	repo          repository.RewardsRepository
	pointsPerUnit decimal.Decimal
	logger        *zap.Logger
}

// NewRewardsService creates a new instance of RewardsService
func NewRewardsService(repo repository.RewardsRepository, pointsPerUnit decimal.Decimal, logger *zap.Logger) RewardsService {
	return &rewardsService{repo: repo, pointsPerUnit: pointsPerUnit, logger: logger}
}

func (s *rewardsService) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.RewardsAccount, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rewards of user %s: %w", userID, err)
	}
	return account, nil
}

func (s *rewardsService) Credit(ctx context.Context, userID, orderID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, domain.NewValidationError("amount", "must be greater than or equal to 0")
	}

	entry := &domain.RewardEntry{
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Points:    domain.PointsFor(amount, s.pointsPerUnit),
		CreatedAt: time.Now(),
	}

	applied, err := s.repo.Credit(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("failed to credit rewards for order %s: %w", orderID, err)
	}

	if applied {
		s.logger.Info("Rewards credited",
			zap.String("user_id", userID.String()),
			zap.String("order_id", orderID.String()),
			zap.Int64("points", entry.Points),
		)
	} else {
		s.logger.Debug("Rewards already credited for order", zap.String("order_id", orderID.String()))
	}
	return applied, nil
}

func (s *rewardsService) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.RewardEntry, error) {
	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards of user %s: %w", userID, err)
	}
	return entries, nil
}
