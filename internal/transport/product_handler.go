package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateProductRequest represents the catalog entry creation payload. Only
// presence is checked here; value rules live on the entity so one request
// reports every violation at once.
type CreateProductRequest struct {
	Name          string  `json:"name" validate:"required"`
	Slug          string  `json:"slug" validate:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	IsActive      *bool   `json:"is_active"`
}

// UpdateProductRequest represents a partial catalog update; absent fields
// keep their value.
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Slug          *string  `json:"slug"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
	IsActive      *bool    `json:"is_active"`
}

// ProductResponse represents catalog data returned to clients
type ProductResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newProductResponse(product *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            product.ID.String(),
		Name:          product.Name,
		Slug:          product.Slug,
		Description:   product.Description,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		IsActive:      product.IsActive,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/slug/{slug}", h.GetBySlug)

		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles adding a catalog entry
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product create validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	// New entries sell by default unless the payload says otherwise.
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	product, err := h.productService.Create(r.Context(), service.ProductInput{
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		IsActive:      isActive,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrSlugTaken):
			h.logger.Debug("Product create conflicts on slug", zap.String("slug", req.Slug))
			middleware.RespondWithFieldError(w, http.StatusConflict, CodeSlugExists, "slug is already in use", "slug")
		case errors.As(err, &verr):
			h.logger.Debug("Product create failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("Product create failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to create product")
		}
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(product))
}

// List handles the paginated catalog listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	isActive, ok := boolFilter(w, r, "is_active")
	if !ok {
		return
	}

	products, total, err := h.productService.List(r.Context(), page, repository.ProductFilter{IsActive: isActive})
	if err != nil {
		h.logger.Error("Product list failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to list products")
		return
	}

	data := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		data = append(data, newProductResponse(product))
	}
	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Data: data, Meta: newListMeta(page, total)})
}

// Get handles fetching a catalog entry by id
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeProductNotFound, "product not found")
			return
		}
		h.logger.Error("Product fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to fetch product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// GetBySlug handles fetching a catalog entry by its URL slug
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.productService.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeProductNotFound, "product not found")
			return
		}
		h.logger.Error("Product fetch by slug failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to fetch product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// Update handles partial catalog updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Product patch decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), id, repository.ProductPatch{
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		IsActive:      req.IsActive,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeProductNotFound, "product not found")
		case errors.Is(err, repository.ErrSlugTaken):
			middleware.RespondWithFieldError(w, http.StatusConflict, CodeSlugExists, "slug is already in use", "slug")
		case errors.As(err, &verr):
			h.logger.Debug("Product patch failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("Product patch failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to update product")
		}
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// Delete handles removing a catalog entry. Products referenced by any order
// stay; the delete is refused.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeProductNotFound, "product not found")
		case errors.Is(err, repository.ErrForeignKeyRestricted):
			middleware.RespondWithError(w, http.StatusConflict, CodeProductInUse, "product is referenced by existing orders")
		default:
			h.logger.Error("Product delete failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to delete product")
		}
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
