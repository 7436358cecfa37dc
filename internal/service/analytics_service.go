package service

import (
	"context"
	"fmt"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardWindow   = 30 * 24 * time.Hour
	dashboardTopLimit = 5
)

// AnalyticsService builds the back-office sales dashboard
type AnalyticsService interface {
	Dashboard(ctx context.Context) (*domain.SalesDashboard, error)
}

type analyticsService struct {
	repo   repository.AnalyticsRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewAnalyticsService creates a new instance of AnalyticsService
func NewAnalyticsService(repo repository.AnalyticsRepository, logger *zap.Logger) AnalyticsService {
	return &analyticsService{repo: repo, now: time.Now, logger: logger}
}

// Dashboard runs every aggregate concurrently; the first failure cancels the rest
func (s *analyticsService) Dashboard(ctx context.Context) (*domain.SalesDashboard, error) {
	now := s.now().UTC()
	since := now.Add(-dashboardWindow)
	d := &domain.SalesDashboard{GeneratedAt: now}

	var paidOrders int
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.TotalSales, d.OrderCount, paidOrders, err = s.repo.SalesTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.SalesByCategory, err = s.repo.SalesByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.CustomerCount, d.NewCustomers, err = s.repo.CustomerCounts(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		d.TopCustomers, err = s.repo.TopCustomers(gctx, dashboardTopLimit)
		return err
	})
	g.Go(func() (err error) {
		d.TopSellingProducts, err = s.repo.TopSellingProducts(gctx, dashboardTopLimit)
		return err
	})
	g.Go(func() (err error) {
		d.OrdersByStatus, err = s.repo.OrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.OrderVolumeDaily, err = s.repo.DailyVolume(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		d.AverageDeliveryHours, err = s.repo.AverageDeliveryHours(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build sales dashboard", zap.Error(err))
		return nil, fmt.Errorf("failed to build sales dashboard: %w", err)
	}

	d.AverageOrderValue = decimal.Zero
	if paidOrders > 0 {
		d.AverageOrderValue = d.TotalSales.Div(decimal.NewFromInt(int64(paidOrders))).Round(2)
	}
	return d, nil
}
