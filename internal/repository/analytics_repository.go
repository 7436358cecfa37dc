package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kuickmart/internal/domain"

	"github.com/shopspring/decimal"
)

// AnalyticsRepository runs the read-only aggregates behind the sales dashboard.
// Every method is independent so callers can run them concurrently.
// Revenue and ranking figures count paid orders only.
type AnalyticsRepository interface {
	// SalesTotals sums paid orders; orders counts every order
	SalesTotals(ctx context.Context) (paidTotal decimal.Decimal, orders, paidOrders int, err error)
	SalesByCategory(ctx context.Context) ([]domain.CategorySales, error)
	CustomerCounts(ctx context.Context, since time.Time) (total, newSince int, err error)
	TopCustomers(ctx context.Context, limit int) ([]domain.CustomerSpend, error)
	TopSellingProducts(ctx context.Context, limit int) ([]domain.ProductSales, error)
	OrdersByStatus(ctx context.Context) (domain.OrderStatusCounts, error)
	DailyVolume(ctx context.Context, since time.Time) ([]domain.DailyVolume, error)
	AverageDeliveryHours(ctx context.Context) (float64, error)
}

type analyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) SalesTotals(ctx context.Context) (decimal.Decimal, int, int, error) {
	var total decimal.Decimal
	var count, paid int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount) FILTER (WHERE is_paid), 0),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE is_paid)
		FROM orders
	`).Scan(&total, &count, &paid)
	if err != nil {
		return decimal.Zero, 0, 0, fmt.Errorf("failed to compute sales totals: %w", err)
	}
	return total, count, paid, nil
}

func (r *analyticsRepository) SalesByCategory(ctx context.Context) ([]domain.CategorySales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(oi.quantity * oi.price_at_order), 0) AS total
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.is_paid
		GROUP BY c.id, c.name
		ORDER BY total DESC, c.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales by category: %w", err)
	}
	defer rows.Close()

	out := []domain.CategorySales{}
	for rows.Next() {
		var s domain.CategorySales
		if err := rows.Scan(&s.CategoryID, &s.Category, &s.TotalSales); err != nil {
			return nil, fmt.Errorf("failed to scan category sales: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *analyticsRepository) CustomerCounts(ctx context.Context, since time.Time) (int, int, error) {
	var total, fresh int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
		FROM users
		WHERE role = 'user'
	`, since).Scan(&total, &fresh)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return total, fresh, nil
}

func (r *analyticsRepository) TopCustomers(ctx context.Context, limit int) ([]domain.CustomerSpend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, TRIM(u.first_name || ' ' || u.last_name), COUNT(o.id), SUM(o.total_amount) AS spent
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.is_paid
		GROUP BY u.id, u.email, u.first_name, u.last_name
		ORDER BY spent DESC, u.email ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top customers: %w", err)
	}
	defer rows.Close()

	out := []domain.CustomerSpend{}
	for rows.Next() {
		var c domain.CustomerSpend
		if err := rows.Scan(&c.UserID, &c.Email, &c.Name, &c.OrderCount, &c.TotalSpent); err != nil {
			return nil, fmt.Errorf("failed to scan customer spend: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *analyticsRepository) TopSellingProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, COALESCE(p.name, ''), SUM(oi.quantity) AS units, SUM(oi.quantity * oi.price_at_order)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.is_paid
		GROUP BY oi.product_id, p.name
		ORDER BY units DESC, oi.product_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	defer rows.Close()

	out := []domain.ProductSales{}
	for rows.Next() {
		var p domain.ProductSales
		if err := rows.Scan(&p.ProductID, &p.Name, &p.UnitsSold, &p.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan product sales: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *analyticsRepository) OrdersByStatus(ctx context.Context) (domain.OrderStatusCounts, error) {
	var c domain.OrderStatusCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_paid AND is_delivered),
			COUNT(*) FILTER (WHERE is_paid AND NOT is_delivered),
			COUNT(*) FILTER (WHERE NOT is_paid AND is_delivered),
			COUNT(*) FILTER (WHERE NOT is_paid AND NOT is_delivered)
		FROM orders
	`).Scan(&c.PaidDelivered, &c.PaidUndelivered, &c.UnpaidDelivered, &c.UnpaidUndelivered)
	if err != nil {
		return c, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return c, nil
}

func (r *analyticsRepository) DailyVolume(ctx context.Context, since time.Time) ([]domain.DailyVolume, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS day, COUNT(*), SUM(total_amount)
		FROM orders
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily volume: %w", err)
	}
	defer rows.Close()

	out := []domain.DailyVolume{}
	for rows.Next() {
		var d domain.DailyVolume
		if err := rows.Scan(&d.Day, &d.TotalOrders, &d.TotalSales); err != nil {
			return nil, fmt.Errorf("failed to scan daily volume: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AverageDeliveryHours measures from order creation to delivery
func (r *analyticsRepository) AverageDeliveryHours(ctx context.Context) (float64, error) {
	var hours sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (delivered_at - created_at)) / 3600.0)::float8
		FROM orders
		WHERE is_delivered AND delivered_at IS NOT NULL
	`).Scan(&hours)
	if err != nil {
		return 0, fmt.Errorf("failed to compute delivery time: %w", err)
	}
	return hours.Float64, nil
}
