package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SearchEntry is one product search performed by a signed-in user
type SearchEntry struct {
	UserID     uuid.UUID `json:"user_id"`
	SearchTerm string    `json:"search_term"`
	CreatedAt  time.Time `json:"created_at"`
}

type CategorySales struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Category   string          `json:"category"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

type CustomerSpend struct {
	UserID     uuid.UUID       `json:"user_id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	OrderCount int             `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

type ProductSales struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// OrderStatusCounts buckets orders by their paid and delivered flags
type OrderStatusCounts struct {
	PaidDelivered     int `json:"paid_delivered"`
	PaidUndelivered   int `json:"paid_undelivered"`
	UnpaidDelivered   int `json:"unpaid_delivered"`
	UnpaidUndelivered int `json:"unpaid_undelivered"`
}

type DailyVolume struct {
	Day         string          `json:"day"`
	TotalOrders int             `json:"total_orders"`
	TotalSales  decimal.Decimal `json:"total_sales"`
}

// SalesDashboard aggregates the back-office sales report
type SalesDashboard struct {
	TotalSales           decimal.Decimal   `json:"total_sales"`
	OrderCount           int               `json:"order_count"`
	AverageOrderValue    decimal.Decimal   `json:"average_order_value"`
	SalesByCategory      []CategorySales   `json:"sales_by_category"`
	CustomerCount        int               `json:"customer_count"`
	NewCustomers         int               `json:"new_customers"`
	TopCustomers         []CustomerSpend   `json:"top_customers"`
	TopSellingProducts   []ProductSales    `json:"top_selling_products"`
	OrdersByStatus       OrderStatusCounts `json:"orders_by_status"`
	OrderVolumeDaily     []DailyVolume     `json:"order_volume_daily"`
	AverageDeliveryHours float64           `json:"average_delivery_hours"`
	GeneratedAt          time.Time         `json:"generated_at"`
}
