package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CategoryID  uuid.UUID       `json:"category_id" db:"category_id"`
	Stock       int             `json:"stock" db:"stock"`
	Colors      []string        `json:"colors" db:"colors"`
	Images      []string        `json:"images" db:"images"`
	VideoURL    string          `json:"video_url,omitempty" db:"video_url"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Price is stored as NUMERIC(12,2) and stock as INTEGER
const (
	PriceScale = 2
	MaxStock   = math.MaxInt32
)

// MaxPrice is the largest price the price column holds
var MaxPrice = decimal.RequireFromString("9999999999.99")

// Validate checks the invariants every stored product must satisfy
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if p.Price.IsNegative() {
		return NewValidationError("price", "must be greater than or equal to 0")
	}
	if p.Price.GreaterThan(MaxPrice) {
		return NewValidationError("price", "must be less than or equal to "+MaxPrice.String())
	}
	if p.Stock < 0 {
		return NewValidationError("stock", "must be greater than or equal to 0")
	}
	if p.Stock > MaxStock {
		return NewValidationError("stock", fmt.Sprintf("must be less than or equal to %d", MaxStock))
	}
	if p.CategoryID == uuid.Nil {
		return NewValidationError("category_id", "is required")
	}
	return nil
}

// NormalizeColors trims color tokens and removes duplicates, keeping first appearance
func NormalizeColors(colors []string) []string {
	seen := make(map[string]struct{}, len(colors))
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize far from int overflow
	MaxPage = 1_000_000
)

// ProductFilter describes a product listing request. It never mutates anything.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	SortBy     string
	SortOrder  SortOrder
	Page       int
	PageSize   int
}

// Normalize fills defaults and clamps paging values
func (f ProductFilter) Normalize() ProductFilter {
	f.Page = min(max(f.Page, 1), MaxPage)
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortBy {
	case "name", "price", "stock", "created_at":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != SortOrderAsc && f.SortOrder != SortOrderDesc {
		f.SortOrder = SortOrderDesc
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Offset returns the row offset of the first item on the page
func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []*Product `json:"products"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
