package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error taxonomy shared by the catalog, cart, order and rewards layers.
// Transport maps each sentinel to a status code; typed errors below carry
// the offending entity ids and match their sentinel through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCategoryInUse     = errors.New("category in use")
	ErrConflict          = errors.New("conflict")
)

// StockShortfall names a cart line that cannot be satisfied by the live stock
type StockShortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError lists every product of one request that lacked stock
type InsufficientStockError struct {
	Items []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, fmt.Sprintf("%s (requested %d, available %d)", item.ProductID, item.Requested, item.Available))
	}
	return "insufficient stock for products: " + strings.Join(ids, ", ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ProductIDs returns the ids of the short products in report order
func (e *InsufficientStockError) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// CategoryInUseError blocks a category delete while products reference it
type CategoryInUseError struct {
	CategoryID uuid.UUID
	Products   int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %s is referenced by %d product(s)", e.CategoryID, e.Products)
}

func (e *CategoryInUseError) Is(target error) bool {
	return target == ErrCategoryInUse
}

// ValidationError reports a malformed field of an otherwise decodable input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError is a shorthand for returning a *ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
