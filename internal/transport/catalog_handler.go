package transport

import (
	"net/http"
	"strings"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the writable product payload shared by create and update
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,lte=9999999999.99"`
	CategoryID  string          `json:"category_id" validate:"required,uuid"`
	Stock       int             `json:"stock" validate:"gte=0,lte=2147483647"`
	Colors      []string        `json:"colors" validate:"max=20,dive,max=50"`
	Images      []string        `json:"images" validate:"max=10,dive,url"`
	VideoURL    string          `json:"video_url" validate:"omitempty,url"`
}

// UpdateProductRequest must carry the version the client last read
type UpdateProductRequest struct {
	ProductRequest
	Version int `json:"version" validate:"required,gte=1"`
}

// CategoryRequest is the writable category payload
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  uuid.MustParse(req.CategoryID),
		Stock:       req.Stock,
		Colors:      req.Colors,
		Images:      req.Images,
		VideoURL:    req.VideoURL,
	}
}

// CatalogHandler serves products and categories
type CatalogHandler struct {
	catalog service.CatalogService
	search  service.SearchService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, search service.SearchService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		search:  search,
		logger:  logger,
	}
}

// RegisterRoutes mounts the catalog. Reads are public; optionalAuth lets a
// signed-in shopper's searches be recorded.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, optionalAuth, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, requireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, requireAdmin)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageParams(r)

	filter := domain.ProductFilter{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: domain.SortOrder(strings.ToUpper(q.Get("sortOrder"))),
		Page:      page,
		PageSize:  pageSize,
	}
	if raw := q.Get("category"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
				{Field: "category", Message: "Must be a valid UUID"},
			})
			return
		}
		filter.CategoryID = &categoryID
	}

	result, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list products")
		return
	}

	if userID, ok := middleware.GetUserID(r.Context()); ok && strings.TrimSpace(filter.Search) != "" {
		h.search.Record(r.Context(), userID, filter.Search)
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req.Version, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
